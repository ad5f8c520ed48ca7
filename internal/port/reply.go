package port

import "context"

// ReplySender sends outbound notification replies to the original sender.
type ReplySender interface {
	SendConfirmation(ctx context.Context, toEmail, subject string, invoiceID int64) error
	SendFailure(ctx context.Context, toEmail, subject string, cause error) error
}
