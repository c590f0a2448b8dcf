package mail

import (
	"fmt"
	"html"
	"strings"
)

// Links builds the URLs embedded in lifecycle emails. Verification is
// served by the API directly; reset and deletion open client-side forms.
type Links struct {
	BaseURL string
}

func (l Links) base() string {
	return strings.TrimRight(l.BaseURL, "/")
}

func (l Links) VerifyEmail(token string) string {
	return l.base() + "/api/auth/verify-email/" + token
}

func (l Links) ResetPassword(token string) string {
	return l.base() + "/reset-password/" + token
}

func (l Links) ConfirmDelete(token string) string {
	return l.base() + "/confirm-delete/" + token
}

func anchor(link string) string {
	escaped := html.EscapeString(link)
	return fmt.Sprintf(`<a href="%s">%s</a>`, escaped, escaped)
}

func VerificationEmail(to string, link string) Message {
	return Message{
		To:       to,
		Subject:  "Please verify your email",
		HTMLBody: "Please verify your email by clicking this link: " + anchor(link),
	}
}

func PasswordResetEmail(to string, link string) Message {
	return Message{
		To:      to,
		Subject: "Password Reset Request",
		HTMLBody: "<p>You are receiving this because you (or someone else) have requested the reset of the password for your account.</p>" +
			"<p>Please click on the following link, or paste this into your browser to complete the process:</p>" +
			"<p>" + anchor(link) + "</p>" +
			"<p>If you did not request this, please ignore this email and your password will remain unchanged.</p>",
	}
}

func AccountDeletionEmail(to string, link string) Message {
	return Message{
		To:       to,
		Subject:  "Confirm account deletion",
		HTMLBody: "Click to confirm account deletion: " + anchor(link),
	}
}

// Admin-triggered sends use shorter copy.

func AdminVerificationEmail(to string, link string) Message {
	return Message{
		To:       to,
		Subject:  "Verify your email",
		HTMLBody: "Click: " + anchor(link),
	}
}

func AdminPasswordResetEmail(to string, link string) Message {
	return Message{
		To:       to,
		Subject:  "Password reset",
		HTMLBody: "Reset: " + anchor(link),
	}
}
