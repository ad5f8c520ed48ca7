package domain

// InvoiceStatus represents the payment state of an invoice record.
type InvoiceStatus string

const (
	StatusUnpaid       InvoiceStatus = "unpaid"
	StatusPaid         InvoiceStatus = "paid"
	StatusNoPaymentDue InvoiceStatus = "no_payment_due"
)

// ValidStatuses enumerates the accepted status values.
var ValidStatuses = map[InvoiceStatus]bool{
	StatusUnpaid:       true,
	StatusPaid:         true,
	StatusNoPaymentDue: true,
}
