package utils

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/jordan-wright/email"
)

var ErrSMTPNotConfigured = errors.New("smtp config missing")

// DeadTaskAlert describes a cleanup task that exhausted its retries.
type DeadTaskAlert struct {
	TaskID     uint64
	Bucket     string
	ObjectName string
	Reason     string
	Attempts   int
	LastError  string
}

// SendDeadTaskAlert mails the operator about an orphaned blob.
func SendDeadTaskAlert(to string, alert DeadTaskAlert) error {
	if strings.TrimSpace(to) == "" {
		return ErrSMTPNotConfigured
	}
	subject := fmt.Sprintf("Cleanup task %d is dead", alert.TaskID)
	body := fmt.Sprintf(`
		<h2>Blob cleanup gave up</h2>
		<p>Task <b>%d</b> (%s) could not remove <code>%s/%s</code> after %d attempts.</p>
		<p>Last error: %s</p>
		<p>Remove the object manually or requeue the task.</p>
	`, alert.TaskID, alert.Reason, alert.Bucket, alert.ObjectName, alert.Attempts, alert.LastError)
	return sendMail(to, subject, body)
}

func sendMail(to, subject, html string) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")
	if host == "" || port == "" || user == "" || pass == "" || from == "" {
		return ErrSMTPNotConfigured
	}

	e := email.NewEmail()
	e.From = from
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(html)

	addr := host + ":" + port
	auth := smtp.PlainAuth("", user, pass, host)
	tlsConfig := &tls.Config{ServerName: host}
	useTLS := strings.EqualFold(os.Getenv("SMTP_TLS"), "true") ||
		os.Getenv("SMTP_TLS") == "1" ||
		port == "465"
	useStartTLS := strings.EqualFold(os.Getenv("SMTP_STARTTLS"), "true") ||
		os.Getenv("SMTP_STARTTLS") == "1"

	if useTLS {
		return e.SendWithTLS(addr, auth, tlsConfig)
	}
	if useStartTLS {
		return e.SendWithStartTLS(addr, auth, tlsConfig)
	}
	return e.Send(addr, auth)
}
