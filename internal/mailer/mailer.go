package mailer

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"bujo/internal/logger"
)

// Mailer delivers HTML mail over SMTP. An empty Host disables delivery.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

func (m *Mailer) Send(to, subject, htmlBody string) error {
	if m.Host == "" {
		logger.Debug().Str("to", to).Msg("smtp disabled, dropping mail")
		return nil
	}

	from := m.From
	if from == "" {
		from = m.Username
	}

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)

	var auth smtp.Auth
	if m.Username != "" && m.Password != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	if m.UseTLS {
		return m.sendTLS(addr, auth, from, to, msg.String())
	}
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String()))
}

func (m *Mailer) sendTLS(addr string, auth smtp.Auth, from, to, message string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write([]byte(message)); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}
