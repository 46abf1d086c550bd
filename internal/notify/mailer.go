// Package notify dispatches issue-created and issue-updated events to the
// configured mail recipient.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/bugrelay/internal/config"
	"github.com/kiranshivaraju/bugrelay/pkg/models"
)

// Notifier is the outbound event boundary of the reconciler.
type Notifier interface {
	IssueCreated(ctx context.Context, project *models.Project, issue *models.Issue) error
	IssueUpdated(ctx context.Context, project *models.Project, issue *models.Issue, journal *models.Journal) error
}

// Mailer sends plain-text notification mail over SMTP. A Mailer with an
// empty host is disabled and drops events silently.
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) IssueCreated(ctx context.Context, project *models.Project, issue *models.Issue) error {
	subject := fmt.Sprintf("[%s] Issue #%d created: %s", project.Name, issue.ID, issue.Subject)
	body := fmt.Sprintf("A new issue was opened from an error report.\n\nProject: %s\nIssue:   #%d %s\n\n%s\n",
		project.Name, issue.ID, issue.Subject, issue.Description)
	return m.send(ctx, subject, body)
}

func (m *Mailer) IssueUpdated(ctx context.Context, project *models.Project, issue *models.Issue, journal *models.Journal) error {
	subject := fmt.Sprintf("[%s] Issue #%d updated: %s", project.Name, issue.ID, issue.Subject)
	body := fmt.Sprintf("An error report was appended to an existing issue.\n\nProject: %s\nIssue:   #%d %s\n\n%s\n",
		project.Name, issue.ID, issue.Subject, journal.Notes)
	return m.send(ctx, subject, body)
}

func (m *Mailer) send(_ context.Context, subject, body string) error {
	if m.cfg.Host == "" {
		return nil
	}

	recipients := splitRecipients(m.cfg.To)
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients configured")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.cfg.From, strings.Join(recipients, ", "), subject, body)

	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial SMTP server: %w", err)
	}
	defer client.Close()

	if m.cfg.StartTLS {
		tlsCfg := &tls.Config{ServerName: m.cfg.Host}
		if err := client.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("start TLS: %w", err)
		}
	}

	if m.cfg.User != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, to := range recipients {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("set recipient %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data transfer: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data transfer: %w", err)
	}

	return client.Quit()
}

func splitRecipients(raw string) []string {
	var out []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
