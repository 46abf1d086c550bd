package notify_test

import (
	"context"
	"testing"

	"github.com/kiranshivaraju/bugrelay/internal/config"
	"github.com/kiranshivaraju/bugrelay/internal/notify"
	"github.com/kiranshivaraju/bugrelay/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestMailer_DisabledWithoutHost(t *testing.T) {
	m := notify.NewMailer(config.SMTPConfig{})

	err := m.IssueCreated(context.Background(),
		&models.Project{Name: "Demo"}, &models.Issue{ID: 1, Subject: "boom"})
	assert.NoError(t, err)

	err = m.IssueUpdated(context.Background(),
		&models.Project{Name: "Demo"}, &models.Issue{ID: 1, Subject: "boom"},
		&models.Journal{Notes: "again"})
	assert.NoError(t, err)
}

func TestMailer_RequiresRecipients(t *testing.T) {
	m := notify.NewMailer(config.SMTPConfig{Host: "mail.example.com", Port: 25, To: " , "})

	err := m.IssueCreated(context.Background(),
		&models.Project{Name: "Demo"}, &models.Issue{ID: 1, Subject: "boom"})
	assert.Error(t, err)
}
