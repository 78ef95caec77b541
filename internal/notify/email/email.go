package email

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/evoting/internal/config"
	mail "github.com/xhit/go-simple-mail/v2"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))

// NotificationService sends vote receipts by email.
type NotificationService struct {
	config *config.EmailConfig
	send   func(to, subject, body string) error
}

// Receipt contains the data of a vote receipt.
type Receipt struct {
	VoterEmail    string
	VoterName     string
	Identifier    string
	CandidateName string
	CandidateRole string
	CastAt        time.Time
	ServerURL     string
}

// New creates a new email notification service.
func New(cfg *config.EmailConfig) *NotificationService {
	n := &NotificationService{config: cfg}
	n.send = n.sendEmail
	return n
}

// Enabled reports whether receipts are sent at all.
func (n *NotificationService) Enabled() bool {
	return n != nil && n.config != nil && n.config.Enabled
}

// SendReceipt sends the vote receipt to the voter.
func (n *NotificationService) SendReceipt(receipt Receipt) error {
	if !n.Enabled() {
		log.Debug("Email notifications are disabled, skipping receipt")
		return nil
	}
	if receipt.VoterEmail == "" {
		log.Warn("Voter email is empty, skipping receipt", "voter", receipt.Identifier)
		return nil
	}

	body, err := renderReceipt(receipt)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return n.send(receipt.VoterEmail, "[eVoting] Your vote has been recorded", body)
}

func renderReceipt(receipt Receipt) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "receipt.html", receipt); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sendEmail sends an email using go-simple-mail.
func (n *NotificationService) sendEmail(to, subject, body string) error {
	server := mail.NewSMTPClient()
	server.Host = n.config.SMTPHost
	server.Port = n.config.SMTPPort
	server.Username = n.config.Username
	server.Password = n.config.Password

	switch {
	case n.config.UseSSL:
		server.Encryption = mail.EncryptionSSLTLS
	case n.config.UseTLS:
		server.Encryption = mail.EncryptionSTARTTLS
	default:
		server.Encryption = mail.EncryptionNone
	}
	if n.config.InsecureSkipVerify {
		server.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	client, err := server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("Failed to close SMTP client", "error", closeErr)
		}
	}()

	fromName := n.config.FromName
	if fromName == "" {
		fromName = "eVoting"
	}

	msg := mail.NewMSG()
	msg.SetFrom(fmt.Sprintf("%s <%s>", fromName, n.config.FromEmail))
	msg.AddTo(to)
	msg.SetSubject(subject)
	msg.SetBody(mail.TextHTML, body)

	if msg.Error != nil {
		return fmt.Errorf("failed to build email: %w", msg.Error)
	}
	if err := msg.Send(client); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info("Vote receipt sent", "to", to)
	return nil
}
