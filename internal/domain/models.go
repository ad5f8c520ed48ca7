package domain

import (
	"encoding/json"
	"time"
)

// EmailBodyFilename is the sentinel filename for the document built from the
// email body itself. It is archived alongside real attachments but never
// becomes a user-facing source file.
const EmailBodyFilename = "email_body"

// InboundEmail is one received message, the unit of identity for ingestion.
type InboundEmail struct {
	MessageID  string    `json:"message_id"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	ReceivedAt time.Time `json:"received_at"`
	Raw        []byte    `json:"-"`
}

// Attachment is an inbound payload normalized to canonical bytes.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NormalizedDocument is one attachment (or the email body) rendered as markdown.
type NormalizedDocument struct {
	Filename string `json:"filename"`
	Markdown string `json:"markdown"`
}

// Extraction is the structured result of analyzing one inbound email's
// documents. Every field is independently nullable; absence is a valid
// outcome, not an error.
type Extraction struct {
	Items               []string `json:"items"`
	Supplier            *string  `json:"supplier"`
	Amount              *float64 `json:"amount"`
	Currency            *string  `json:"currency"`
	InvoiceID           *string  `json:"invoiceId"`
	AccountIBAN         *string  `json:"accountIBAN"`
	AccountBIC          *string  `json:"accountBIC"`
	AccountREG          *string  `json:"accountREG"`
	AccountNumber       *string  `json:"accountNumber"`
	LastPaymentDate     *string  `json:"lastPaymentDate"`
	SourceFileReference *string  `json:"sourceFileReference"`
}

// EmptyExtraction returns the all-null fallback extraction. Items is an empty
// list rather than nil so the gold layer always serializes "items": [].
func EmptyExtraction() Extraction {
	return Extraction{Items: []string{}}
}

// Invoice is the durable, user-facing record created from an extraction.
// Extraction-derived fields are copied in at creation and independently
// editable afterwards.
type Invoice struct {
	ID             int64    `db:"id" json:"id"`
	MessageID      string   `db:"message_id" json:"message_id"`
	Supplier       *string  `db:"supplier" json:"supplier"`
	Amount         *float64 `db:"amount" json:"amount"`
	Currency       *string  `db:"currency" json:"currency"`
	AccountBalance *float64 `db:"account_balance" json:"account_balance"`
	InvoiceNumber  *string  `db:"invoice_id" json:"invoice_id"`
	AccountIBAN    *string  `db:"account_to_pay_iban" json:"account_to_pay_IBAN"`
	AccountBIC     *string  `db:"account_to_pay_bic" json:"account_to_pay_BIC"`
	AccountREG     *string  `db:"account_to_pay_reg" json:"account_to_pay_REG"`
	AccountNumber  *string  `db:"account_to_pay_account_number" json:"account_to_pay_ACCOUNT_NUMBER"`
	// LastPaymentDate is the due date as extracted, kept as text because
	// supplier formats vary too much to normalize at ingestion.
	LastPaymentDate *string       `db:"last_payment_date" json:"last_payment_date"`
	ItemsJSON       *string       `db:"items_json" json:"-"`
	Status          InvoiceStatus `db:"status" json:"status"`
	PaidAt          *time.Time    `db:"paid_at" json:"paid_at"`
	// ManuallyEditedFields is the serialized provenance set: field names
	// touched by a human since creation, insertion-ordered.
	ManuallyEditedFields *string `db:"manually_edited_fields" json:"-"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`

	Items        []string     `db:"-" json:"items"`
	EditedFields []string     `db:"-" json:"manually_edited_fields"`
	SourceFiles  []SourceFile `db:"-" json:"source_files,omitempty"`
}

// NewInvoiceFromExtraction copies extraction fields verbatim into a fresh
// unpaid invoice for the given message.
func NewInvoiceFromExtraction(messageID string, ext Extraction) *Invoice {
	inv := &Invoice{
		MessageID:       messageID,
		Supplier:        ext.Supplier,
		Amount:          ext.Amount,
		Currency:        ext.Currency,
		InvoiceNumber:   ext.InvoiceID,
		AccountIBAN:     ext.AccountIBAN,
		AccountBIC:      ext.AccountBIC,
		AccountREG:      ext.AccountREG,
		AccountNumber:   ext.AccountNumber,
		LastPaymentDate: ext.LastPaymentDate,
		Status:          StatusUnpaid,
		Items:           ext.Items,
	}
	if inv.Items == nil {
		inv.Items = []string{}
	}
	if data, err := json.Marshal(inv.Items); err == nil {
		s := string(data)
		inv.ItemsJSON = &s
	}
	return inv
}

// SourceFile links one archived source attachment to its invoice.
type SourceFile struct {
	ID        int64     `db:"id" json:"id"`
	MessageID string    `db:"message_id" json:"message_id"`
	Filename  string    `db:"filename" json:"filename"`
	BlobURI   string    `db:"blob_uri" json:"blob_uri"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
