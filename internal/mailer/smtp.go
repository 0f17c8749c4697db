package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// SMTPMailer sends account mail over plain SMTP with AUTH. It holds no
// connection; each message dials fresh.
type SMTPMailer struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config, log *slog.Logger) *SMTPMailer {
	if log == nil {
		log = slog.Default()
	}
	return &SMTPMailer{cfg: cfg, log: log}
}

func (m *SMTPMailer) addr() string {
	return fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
}

func (m *SMTPMailer) auth() smtp.Auth {
	if m.cfg.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	resetURL := strings.TrimRight(m.cfg.FrontendURL, "/") + "/reset-password?token=" + token
	body := fmt.Sprintf(
		"You requested a password reset.\r\n\r\n"+
			"Open the link below to choose a new password. It expires in one hour.\r\n\r\n"+
			"%s\r\n\r\n"+
			"If you did not request this, you can ignore this email.\r\n",
		resetURL,
	)
	return m.send(ctx, to, "Reset your password", body)
}

func (m *SMTPMailer) SendTwoFactorCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(
		"Your verification code is: %s\r\n\r\n"+
			"It expires in 10 minutes. If you did not try to sign in, change your password.\r\n",
		code,
	)
	return m.send(ctx, to, "Your verification code", body)
}

// TestConnection dials the server and exchanges a greeting. Run once at boot;
// callers log failures instead of refusing to start.
func (m *SMTPMailer) TestConnection(ctx context.Context) error {
	c, err := smtp.Dial(m.addr())
	if err != nil {
		return fmt.Errorf("dialing smtp server: %w", err)
	}
	defer c.Close()
	if err := c.Hello("localhost"); err != nil {
		return fmt.Errorf("smtp hello: %w", err)
	}
	return c.Quit()
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.addr(), m.auth(), m.cfg.From, []string{to}, []byte(msg)); err != nil {
		m.log.Error("sending email failed", "to", to, "subject", subject, "error", err)
		return err
	}
	m.log.Info("email sent", "to", to, "subject", subject)
	return nil
}
