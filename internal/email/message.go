package email

import (
	"fmt"
	"strings"
	"time"
)

type message struct {
	To      string
	Subject string
	Body    string
}

func otpMessage(to, code string, expiresAt time.Time) message {
	return message{
		To:      to,
		Subject: "Your sign-in code",
		Body: fmt.Sprintf(
			"Use %s to sign in and manage your business cards.\nThe code expires at %s UTC.\nIf you did not ask for it you can ignore this email.\n",
			code,
			expiresAt.UTC().Format(time.RFC3339),
		),
	}
}

// render arma el mensaje RFC 5322 en texto plano.
func (m message) render(from, fromName string) string {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		"From: " + fromHeader,
		"To: " + m.To,
		"Subject: " + m.Subject,
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}

	body := strings.ReplaceAll(m.Body, "\n", "\r\n")
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
