// Package smtptest runs an in-process SMTP server for exercising relay
// delivery in tests.
package smtptest

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
)

// ReceivedMessage is one message the stub accepted.
type ReceivedMessage struct {
	From string
	To   []string
	Data []byte
}

// Server is an in-process SMTP stub. It accepts everything by default and
// can be switched to reject to exercise retry paths.
type Server struct {
	listener net.Listener
	server   *smtp.Server

	mu        sync.Mutex
	messages  []ReceivedMessage
	rejectAll bool
}

// NewServer starts a stub SMTP server on an ephemeral localhost port.
func NewServer() (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	s := &Server{listener: listener}

	server := smtp.NewServer(&backend{server: s})
	server.Domain = "localhost"
	server.ReadTimeout = 10 * time.Second
	server.WriteTimeout = 10 * time.Second
	server.AllowInsecureAuth = true
	s.server = server

	go server.Serve(listener)
	return s, nil
}

// Addr returns the host the server listens on.
func (s *Server) Addr() string {
	return "127.0.0.1"
}

// Port returns the port the server listens on.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Close stops the server.
func (s *Server) Close() error {
	return s.server.Close()
}

// Messages returns a copy of everything accepted so far.
func (s *Server) Messages() []ReceivedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReceivedMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// RejectAll makes the server refuse every MAIL FROM with a 550.
func (s *Server) RejectAll(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectAll = reject
}

func (s *Server) rejecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejectAll
}

func (s *Server) record(msg ReceivedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

type backend struct {
	server *Server
}

func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{server: b.server}, nil
}

type session struct {
	server *Server
	from   string
	to     []string
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	if s.server.rejecting() {
		return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 7, 1}, Message: "rejected"}
	}
	s.from = from
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.to = append(s.to, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.server.record(ReceivedMessage{From: s.from, To: s.to, Data: data})
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

func (s *session) Logout() error {
	return nil
}
