package report

import (
	"fmt"
	"net/smtp"
	"strings"

	"flowscrape/internal/config"

	"github.com/jordan-wright/email"
)

// Send mails the summary. Callers gate on cfg.Enabled().
func Send(cfg config.ReportConfig, s Summary) error {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("flowscrape <%s>", from)
	mail.To = cfg.To
	mail.Subject = fmt.Sprintf("flowscrape: %d eventos, %d participantes", s.Events, s.TotalParticipants)
	mail.Text = []byte(s.Text())

	host := cfg.SMTPAddr
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}

	err := mail.Send(cfg.SMTPAddr, auth)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(cfg.SMTPAddr, nil)
	}
	if err != nil {
		return fmt.Errorf("send summary mail: %w", err)
	}
	return nil
}
