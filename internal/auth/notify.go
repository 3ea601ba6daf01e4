package auth

import (
	"context"
	"fmt"

	"github.com/cpp-cyber/ldapauth/internal/logger"
	"github.com/cpp-cyber/ldapauth/internal/models"
	"gopkg.in/gomail.v2"
)

// Notifier is told about users created by a directory login, after the
// creating transaction has committed.
type Notifier interface {
	UserRegistered(ctx context.Context, user *models.User) error
}

// LogNotifier writes a log line per registration.
type LogNotifier struct{}

func (LogNotifier) UserRegistered(ctx context.Context, user *models.User) error {
	logger.Ctx(ctx).Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Str("source", user.AuthSource).
		Msg("user registered")
	return nil
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailNotifier sends a registration email to the new user.
type MailNotifier struct {
	d    mailDialer
	from string
}

func NewMailNotifier(cfg *MailConfig) *MailNotifier {
	return &MailNotifier{
		d:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from: cfg.From,
	}
}

func (n *MailNotifier) UserRegistered(ctx context.Context, user *models.User) error {
	if user.Email == "" {
		return nil
	}

	name := user.FullName
	if name == "" {
		name = user.Username
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetAddressHeader("To", user.Email, name)
	m.SetHeader("Subject", "Your account has been created")
	m.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nAn account with the username %q was created the first time you signed in with your directory credentials.\n",
		name, user.Username,
	))

	if err := n.d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send registration email to %s: %w", user.Email, err)
	}
	return nil
}
