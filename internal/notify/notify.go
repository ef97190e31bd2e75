// Package notify sends best-effort email notifications. Sends run in
// their own goroutine, failures are logged and never retried.
package notify

import (
	"fmt"
	"log"
	"net/smtp"
)

// Mailer delivers a single message.
type Mailer interface {
	Send(to []string, subject, body string) error
}

// SMTPMailer sends through a plain SMTP relay.
type SMTPMailer struct {
	Host string
	Port int
	From string
	User string
	Pass string
}

func (m *SMTPMailer) Send(to []string, subject, body string) error {
	msg := []byte("From: " + m.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body + "\r\n")

	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Pass, m.Host)
	}
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	return smtp.SendMail(addr, auth, m.From, to, msg)
}

// NoopMailer drops every message. Used when SMTP is not configured.
type NoopMailer struct{}

func (NoopMailer) Send([]string, string, string) error { return nil }

// Service wraps a Mailer with the application's notification templates.
type Service struct {
	mailer Mailer
}

func NewService(mailer Mailer) *Service {
	return &Service{mailer: mailer}
}

func (s *Service) send(to []string, subject, body string) {
	go func() {
		if err := s.mailer.Send(to, subject, body); err != nil {
			log.Printf("notify: send %q failed: %v", subject, err)
		}
	}()
}

func (s *Service) InviteCreated(toEmails []string, fromUsername, roomTitle string) {
	s.send(toEmails, "Room invitation",
		fmt.Sprintf("User %s invited you to the room %q", fromUsername, roomTitle))
}

func (s *Service) FriendRequestCreated(toEmail, fromUsername string) {
	s.send([]string{toEmail}, "Friend request",
		fmt.Sprintf("User %s wants to add you as a friend", fromUsername))
}

func (s *Service) FriendRequestAccepted(toEmail, byUsername string) {
	s.send([]string{toEmail}, "Friend request accepted",
		fmt.Sprintf("User %s accepted your friend request", byUsername))
}
