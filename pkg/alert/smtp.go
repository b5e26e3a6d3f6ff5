package alert

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/techopolis/tracker/pkg/config"
	"github.com/techopolis/tracker/pkg/logutils"
)

type smtpHandler struct {
	dialer *gomail.Dialer
	from   string
}

func newSMTPHandler() handlerInterface {
	smtpConfig := config.GetConfig().SMTP
	return &smtpHandler{
		dialer: gomail.NewDialer(smtpConfig.Host, smtpConfig.Port, smtpConfig.User, smtpConfig.Password),
		from:   smtpConfig.From,
	}
}

func (s *smtpHandler) SendMessageTo(_ context.Context, recipients []string, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return err
	}
	logutils.Log.Infof("sent %q to %v", subject, recipients)
	return nil
}

// logHandler records notifications in the log instead of delivering them.
type logHandler struct{}

func (l *logHandler) SendMessageTo(_ context.Context, recipients []string, subject, _ string) error {
	logutils.Log.Infof("notification %q for %v (mail delivery disabled)", subject, recipients)
	return nil
}
