package noop

import (
	"context"
	"log"

	"github.com/miklbjorn/email-summerhouse/internal/port"
)

type noopSender struct{}

// NewNoopSender creates a no-op ReplySender that logs replies to stdout.
func NewNoopSender() port.ReplySender {
	return &noopSender{}
}

func (s *noopSender) SendConfirmation(_ context.Context, toEmail, subject string, invoiceID int64) error {
	log.Printf("[NOOP EMAIL] Confirmation to %s (re: %s): invoice %d created", toEmail, subject, invoiceID)
	return nil
}

func (s *noopSender) SendFailure(_ context.Context, toEmail, subject string, cause error) error {
	log.Printf("[NOOP EMAIL] Failure notice to %s (re: %s): %v", toEmail, subject, cause)
	return nil
}
