package domain

import (
	"context"
)

// SendJob is the payload handed to the delivery worker. It carries
// everything the worker needs so it never re-reads request state.
type SendJob struct {
	JobID     string `json:"jobId"`
	MessageID string `json:"messageId"`

	UserID   string `json:"userId"`
	DomainID string `json:"domainId"`
	APIKeyID string `json:"apiKeyId"`

	FromName    string `json:"fromName,omitempty"`
	FromAddress string `json:"fromAddress"`
	Domain      string `json:"domain"`

	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html,omitempty"`
	Text    string            `json:"text,omitempty"`
	ReplyTo string            `json:"replyTo,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Delivery describes the queue's view of the current attempt, 0-based.
type Delivery struct {
	Attempt     int
	MaxAttempts int
}

// Terminal reports whether this is the last attempt the queue will make.
func (d Delivery) Terminal() bool {
	return d.Attempt+1 >= d.MaxAttempts
}

// SendJobHandler processes one delivery attempt. A returned error makes
// the queue retry until attempts are exhausted.
type SendJobHandler func(ctx context.Context, job *SendJob, delivery Delivery) error

// JobQueue is the durable delivery queue. Enqueue deduplicates by jobId;
// re-enqueueing the same id is a no-op.
type JobQueue interface {
	Enqueue(ctx context.Context, job *SendJob) error
	Close() error
}
