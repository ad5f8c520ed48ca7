package mail

import (
	"net/mail"
	"strings"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
)

// Policy validates inbound messages against the configured allow lists.
// Rejection happens before any persistence, so a refused message leaves no
// side effects.
type Policy struct {
	allowedSenders map[string]bool
	recipients     map[string]bool
}

// NewPolicy builds a Policy from address lists. Matching is case-insensitive
// on the bare address (display names stripped). An empty sender list rejects
// everything; an empty recipient list accepts any recipient.
func NewPolicy(allowedSenders, recipients []string) *Policy {
	p := &Policy{
		allowedSenders: make(map[string]bool, len(allowedSenders)),
		recipients:     make(map[string]bool, len(recipients)),
	}
	for _, s := range allowedSenders {
		p.allowedSenders[normalizeAddress(s)] = true
	}
	for _, r := range recipients {
		p.recipients[normalizeAddress(r)] = true
	}
	return p
}

// Validate checks the sender against the allow list and each recipient
// against the recognized set. At least one recipient must match.
func (p *Policy) Validate(from string, to []string) error {
	if !p.allowedSenders[normalizeAddress(from)] {
		return domain.ErrSenderNotAllowed
	}
	if len(p.recipients) == 0 {
		return nil
	}
	for _, addr := range to {
		if p.recipients[normalizeAddress(addr)] {
			return nil
		}
	}
	return domain.ErrUnknownRecipient
}

// normalizeAddress lowercases and strips any display name from an address.
func normalizeAddress(addr string) string {
	if parsed, err := mail.ParseAddress(addr); err == nil {
		return strings.ToLower(parsed.Address)
	}
	return strings.ToLower(strings.TrimSpace(addr))
}
