// Package mail renders transactional emails and delivers them over SMTP.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

var page = template.Must(template.ParseFS(templatesFS, "templates/email.html"))

// Message is a rendered email.  It is also the payload of the outbound
// mail queue.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type pageData struct {
	Title       string
	Heading     string
	Recipient   string
	Description string
	Action      string
	Link        string
	Expires     string
}

// Composer builds the verification and password reset mails.  Links point
// at the front-end, which posts the token back to the API.
type Composer struct {
	ClientURL string
	TokenTTL  time.Duration
}

// VerifyEmail links to CLIENT_URL/verify-email?token=...
func (c Composer) VerifyEmail(to, token string) (Message, error) {
	return c.render(to, "Email Verification", pageData{
		Title:       "Email Verification",
		Heading:     "Verify your email",
		Description: "Please click the button below to verify your email address.",
		Action:      "Verify email",
		Link:        c.link("/verify-email", token),
	})
}

// ResetPassword links to CLIENT_URL/reset-password?token=...
func (c Composer) ResetPassword(to, token string) (Message, error) {
	return c.render(to, "Password Reset Request", pageData{
		Title:       "Password Reset",
		Heading:     "Reset your password",
		Description: "Please click the button below to choose a new password. Ignore this mail if you did not ask for it.",
		Action:      "Reset password",
		Link:        c.link("/reset-password", token),
	})
}

func (c Composer) link(path, token string) string {
	return strings.TrimRight(c.ClientURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func (c Composer) render(to, subject string, d pageData) (Message, error) {
	d.Recipient = to
	d.Expires = c.TokenTTL.String()
	var buf bytes.Buffer
	if err := page.Execute(&buf, d); err != nil {
		return Message{}, fmt.Errorf("render %q: %w", subject, err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}
