package relay

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/wneessen/go-mail"
)

//go:generate mockgen -destination=../mocks/mock_relay.go -package=mocks github.com/relaypost/relaypost/pkg/relay Client

// Message is one outbound email envelope handed to the relay.
type Message struct {
	// MessageID is stamped into the RFC Message-Id header verbatim,
	// including the angle brackets.
	MessageID string

	FromName    string
	FromAddress string
	To          []string
	ReplyTo     string
	Subject     string
	HTML        string
	Text        string

	// Headers are extra message headers; caller headers plus the
	// X-Message-Id / X-User-Id / X-Domain-Id / X-API-Key-Id envelope set.
	Headers map[string]string
}

// Result reports which recipients the relay accepted.
type Result struct {
	Accepted []string `json:"accepted"`
	Rejected []string `json:"rejected"`
	Response string   `json:"response"`
}

// Client delivers messages to the upstream SMTP relay.
type Client interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
}

// Config holds the relay connection settings.
type Config struct {
	Host string
	Port int
	// InsecureTLS skips certificate verification for STARTTLS, for relays
	// with self-signed certificates in development.
	InsecureTLS bool
}

// SMTPClient is a process-wide relay client. The underlying go-mail client
// is constructed lazily on first send and reused across jobs.
type SMTPClient struct {
	config Config

	mu     sync.Mutex
	client *mail.Client
}

// NewSMTPClient creates a relay client for the given config.
func NewSMTPClient(config Config) *SMTPClient {
	return &SMTPClient{config: config}
}

// Send builds the message and hands it to the relay. The relay owns final
// delivery; a nil error means every recipient was accepted.
func (c *SMTPClient) Send(ctx context.Context, msg *Message) (*Result, error) {
	m := mail.NewMsg(mail.WithNoDefaultUserAgent())

	if msg.FromName != "" {
		if err := m.FromFormat(msg.FromName, msg.FromAddress); err != nil {
			return nil, fmt.Errorf("failed to set from address: %w", err)
		}
	} else {
		if err := m.From(msg.FromAddress); err != nil {
			return nil, fmt.Errorf("failed to set from address: %w", err)
		}
	}

	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("failed to set recipients: %w", err)
	}

	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("failed to set reply-to: %w", err)
		}
	}

	m.Subject(msg.Subject)

	switch {
	case msg.HTML != "" && msg.Text != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
		m.AddAlternativeString(mail.TypeTextPlain, msg.Text)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}

	if msg.MessageID != "" {
		m.SetGenHeader(mail.HeaderMessageID, msg.MessageID)
	}
	for name, value := range msg.Headers {
		m.SetGenHeader(mail.Header(name), value)
	}

	client, err := c.smtpClient()
	if err != nil {
		return nil, err
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return nil, fmt.Errorf("relay rejected message: %w", err)
	}

	return &Result{
		Accepted: msg.To,
		Rejected: []string{},
		Response: fmt.Sprintf("accepted by %s:%d", c.config.Host, c.config.Port),
	}, nil
}

func (c *SMTPClient) smtpClient() (*mail.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	clientOptions := []mail.Option{
		mail.WithPort(c.config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if c.config.InsecureTLS {
		clientOptions = append(clientOptions,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
		)
	}

	client, err := mail.NewClient(c.config.Host, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	c.client = client
	return client, nil
}
