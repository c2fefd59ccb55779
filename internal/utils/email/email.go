package email

import (
	"bytes"
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/tea-service/internal/config"
	"github.com/Dan9191/tea-service/internal/models"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendReport mails a scenario report with the CSV export attached
func (s *Sender) SendReport(to string, report *models.Report, attachment []byte) error {
	e, err := s.buildReport(to, report, attachment)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send report %s to %s: %v", report.ID, to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func (s *Sender) buildReport(to string, report *models.Report, attachment []byte) (*email.Email, error) {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("TEA report: %s", report.Scenario)

	m := report.Metrics
	body := fmt.Sprintf("Projection report for scenario %s (%d years).\n\n", report.Scenario, len(report.Rows))
	body += fmt.Sprintf("NPV: %.2f EUR\n", m.NPV)
	if m.ROIInfinite() {
		body += "ROI: infinite (no capex)\n"
	} else {
		body += fmt.Sprintf("ROI: %.2f%%\n", m.ROI*100)
	}
	if m.BreakevenReached() {
		body += fmt.Sprintf("Break-even: year %d\n", m.BreakevenYear)
	} else {
		body += "Break-even: not reached\n"
	}
	body += fmt.Sprintf("\nGenerated %s, report id %s.\n", time.Now().Format("2006-01-02 15:04:05"), report.ID)
	e.Text = []byte(body)

	filename := fmt.Sprintf("%s_report.csv", report.Scenario)
	if _, err := e.Attach(bytes.NewReader(attachment), filename, "text/csv"); err != nil {
		return nil, fmt.Errorf("failed to attach report: %w", err)
	}
	return e, nil
}
