package ses

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/miklbjorn/email-summerhouse/internal/port"
)

type sesSender struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
}

// NewSESSender creates a new SES-backed ReplySender.
func NewSESSender(region, fromAddress, fromName string) (port.ReplySender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	client := sesv2.NewFromConfig(cfg)
	return &sesSender{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
	}, nil
}

func (s *sesSender) SendConfirmation(ctx context.Context, toEmail, subject string, invoiceID int64) error {
	replySubject := "Re: " + subject
	textBody := fmt.Sprintf(
		"Your invoice email was received and processed.\n\nRecord number: %d\n\nYou can review and correct the extracted fields at any time.",
		invoiceID,
	)
	return s.send(ctx, toEmail, replySubject, textBody)
}

func (s *sesSender) SendFailure(ctx context.Context, toEmail, subject string, cause error) error {
	replySubject := "Re: " + subject
	textBody := fmt.Sprintf(
		"Your invoice email was received but could not be processed.\n\nReason: %v\n\nPlease try again or forward the invoice to support.",
		cause,
	)
	return s.send(ctx, toEmail, replySubject, textBody)
}

func (s *sesSender) send(ctx context.Context, toEmail, subject, textBody string) error {
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}
