package email

import (
	"testing"
	"time"

	"github.com/jon4hz/evoting/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, body string
}

func newCapturingService(cfg *config.EmailConfig) (*NotificationService, *[]sentMail) {
	var sent []sentMail
	n := New(cfg)
	n.send = func(to, subject, body string) error {
		sent = append(sent, sentMail{to: to, subject: subject, body: body})
		return nil
	}
	return n, &sent
}

func TestSendReceiptDisabled(t *testing.T) {
	n, sent := newCapturingService(&config.EmailConfig{Enabled: false})

	require.NoError(t, n.SendReceipt(Receipt{VoterEmail: "a@example.com"}))
	assert.Empty(t, *sent)
	assert.False(t, n.Enabled())

	var nilService *NotificationService
	assert.False(t, nilService.Enabled())
}

func TestSendReceiptWithoutEmail(t *testing.T) {
	n, sent := newCapturingService(&config.EmailConfig{Enabled: true})

	require.NoError(t, n.SendReceipt(Receipt{Identifier: "1RV20CS001"}))
	assert.Empty(t, *sent)
}

func TestSendReceipt(t *testing.T) {
	n, sent := newCapturingService(&config.EmailConfig{Enabled: true})

	err := n.SendReceipt(Receipt{
		VoterEmail:    "asha@example.com",
		VoterName:     "Asha",
		Identifier:    "1RV20CS001",
		CandidateName: "Ravi <Kumar>",
		CandidateRole: "President",
		CastAt:        time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		ServerURL:     "https://vote.example.com",
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	mail := (*sent)[0]
	assert.Equal(t, "asha@example.com", mail.to)
	assert.Contains(t, mail.subject, "vote has been recorded")
	assert.Contains(t, mail.body, "1RV20CS001")
	assert.Contains(t, mail.body, "Ravi &lt;Kumar&gt; (President)")
	assert.Contains(t, mail.body, "2024-03-01 10:30:00 UTC")
	assert.Contains(t, mail.body, "https://vote.example.com")
}
