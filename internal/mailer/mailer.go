// Package mailer adapts the notification collaborator. Delivery itself is
// handled by the back-office notification service; this module only needs
// "send templated email to address".
package mailer

import (
	"context"
	"log"
)

// LogMailer writes the outbound mail intent to the process log. It stands in
// wherever a real delivery backend is not wired up, including tests.
type LogMailer struct {
	BaseURL string
}

func NewLogMailer(baseURL string) *LogMailer {
	return &LogMailer{BaseURL: baseURL}
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	log.Printf("mail: verification link for %s: %s/verify-email?token=%s", to, m.BaseURL, token)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	log.Printf("mail: password reset link for %s: %s/reset-password?token=%s", to, m.BaseURL, token)
	return nil
}
