package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/tidwall/gjson"
)

// StringList accepts either a JSON string or an array of strings on the
// wire and normalizes to a slice.
type StringList []string

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or array of strings")
	}
	*s = StringList(many)
	return nil
}

// VariablesParam accepts template variables as either a JSON object or a
// JSON-encoded string (form submissions send the latter). Invalid payloads
// normalize to an empty map rather than failing the request.
type VariablesParam map[string]string

// UnmarshalJSON implements the json.Unmarshaler interface
func (v *VariablesParam) UnmarshalJSON(data []byte) error {
	parsed := gjson.ParseBytes(data)
	if parsed.Type == gjson.String {
		parsed = gjson.Parse(parsed.String())
	}
	out := VariablesParam{}
	if parsed.IsObject() {
		parsed.ForEach(func(key, value gjson.Result) bool {
			out[key.String()] = value.String()
			return true
		})
	}
	*v = out
	return nil
}

// SendMessageRequest is the body of POST /api/v1/send.
type SendMessageRequest struct {
	From            string            `json:"from"`
	To              StringList        `json:"to"`
	Subject         string            `json:"subject,omitempty"`
	HTML            string            `json:"html,omitempty"`
	Text            string            `json:"text,omitempty"`
	TemplateID      string            `json:"templateId,omitempty"`
	Variables       VariablesParam    `json:"variables,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	ReplyTo         string            `json:"replyTo,omitempty"`
	DisableTracking bool              `json:"disableTracking,omitempty"`
}

// Validate checks the request before content resolution. Subject and body
// presence is checked after template rendering, not here.
func (r *SendMessageRequest) Validate() error {
	if r.From == "" {
		return NewValidationError("from is required")
	}
	if len(r.To) == 0 {
		return NewValidationError("to is required")
	}
	for _, addr := range r.To {
		if !govalidator.IsEmail(addr) {
			return NewValidationError(fmt.Sprintf("invalid recipient address: %s", addr))
		}
	}
	return nil
}

// FromAddress is a parsed FROM value.
type FromAddress struct {
	Name    string
	Address string
	Domain  string
}

// ParseFromAddress accepts either "local@host" or `Name <local@host>`,
// stripping outer quotes from the display name.
func ParseFromAddress(raw string) (*FromAddress, error) {
	raw = strings.TrimSpace(raw)
	name := ""
	addr := raw

	if open := strings.LastIndex(raw, "<"); open >= 0 && strings.HasSuffix(raw, ">") {
		name = strings.TrimSpace(raw[:open])
		name = strings.Trim(name, `"`)
		addr = strings.TrimSpace(raw[open+1 : len(raw)-1])
	}

	if !govalidator.IsEmail(addr) {
		return nil, NewValidationError(fmt.Sprintf("invalid from address: %s", raw))
	}

	at := strings.LastIndex(addr, "@")
	return &FromAddress{
		Name:    name,
		Address: addr,
		Domain:  strings.ToLower(addr[at+1:]),
	}, nil
}

// SendResult is the success body of POST /api/v1/send.
type SendResult struct {
	Success    bool   `json:"success"`
	JobID      string `json:"jobId"`
	MessageID  string `json:"messageId"`
	Recipients int    `json:"recipients"`
	Suppressed int    `json:"suppressed"`
	Status     string `json:"status"`
}

// SendService is the accept-and-enqueue path.
type SendService interface {
	// Send validates, renders, rewrites, filters suppressed recipients,
	// reserves quota, persists the queued events and tracking rows, and
	// enqueues the delivery job.
	Send(ctx context.Context, auth *AuthContext, req *SendMessageRequest) (*SendResult, error)
}
