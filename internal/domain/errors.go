package domain

import "errors"

var (
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrSourceFileNotFound = errors.New("source file not found")
	ErrDuplicateMessage   = errors.New("message already ingested")
	ErrSenderNotAllowed   = errors.New("sender address not on allow list")
	ErrUnknownRecipient   = errors.New("recipient address not recognized")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUnknownField       = errors.New("field is not editable")
	ErrInvalidStatus      = errors.New("invalid status value")
	ErrInvalidFieldValue  = errors.New("invalid value for field")
)
