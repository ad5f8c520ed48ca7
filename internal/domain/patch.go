package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field names the user-editable columns of an invoice. The set is closed:
// anything else in an update payload is rejected.
type Field string

const (
	FieldSupplier        Field = "supplier"
	FieldAmount          Field = "amount"
	FieldCurrency        Field = "currency"
	FieldAccountBalance  Field = "account_balance"
	FieldInvoiceNumber   Field = "invoice_id"
	FieldAccountIBAN     Field = "account_to_pay_IBAN"
	FieldAccountBIC      Field = "account_to_pay_BIC"
	FieldAccountREG      Field = "account_to_pay_REG"
	FieldAccountNumber   Field = "account_to_pay_ACCOUNT_NUMBER"
	FieldLastPaymentDate Field = "last_payment_date"
	FieldStatus          Field = "status"
)

// EditableFields lists the closed editable set in canonical order.
var EditableFields = []Field{
	FieldSupplier,
	FieldAmount,
	FieldCurrency,
	FieldAccountBalance,
	FieldInvoiceNumber,
	FieldAccountIBAN,
	FieldAccountBIC,
	FieldAccountREG,
	FieldAccountNumber,
	FieldLastPaymentDate,
	FieldStatus,
}

var editable = func() map[Field]bool {
	m := make(map[Field]bool, len(EditableFields))
	for _, f := range EditableFields {
		m[f] = true
	}
	return m
}()

// legacyPaidKey is the deprecated boolean flag accepted for backwards
// compatibility. It is translated to a status edit and never persisted.
const legacyPaidKey = "paid"

// numericFields holds REAL columns; everything else except status is text.
var numericFields = map[Field]bool{
	FieldAmount:         true,
	FieldAccountBalance: true,
}

// Patch is a sparse update over the editable field set. A field present with
// a nil value is an explicit null edit, distinct from the field being absent.
// Insertion order of first-seen fields is preserved.
type Patch struct {
	values map[Field]any
	order  []Field
}

// NewPatch returns an empty patch. An empty patch is a legal update: it
// re-serializes the provenance set and changes nothing else.
func NewPatch() *Patch {
	return &Patch{values: make(map[Field]any)}
}

// Set records an edit for a field. Passing nil records an explicit null.
func (p *Patch) Set(f Field, v any) {
	if _, seen := p.values[f]; !seen {
		p.order = append(p.order, f)
	}
	p.values[f] = v
}

// Get returns the edit value for a field and whether it is present.
func (p *Patch) Get(f Field) (any, bool) {
	v, ok := p.values[f]
	return v, ok
}

// Has reports whether the field is present in the patch.
func (p *Patch) Has(f Field) bool {
	_, ok := p.values[f]
	return ok
}

// Fields returns the patched field names in first-seen order.
func (p *Patch) Fields() []Field {
	out := make([]Field, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of patched fields.
func (p *Patch) Len() int {
	return len(p.values)
}

// Status returns the new status value when the patch carries one.
func (p *Patch) Status() (InvoiceStatus, bool) {
	v, ok := p.values[FieldStatus]
	if !ok || v == nil {
		return "", false
	}
	return v.(InvoiceStatus), true
}

// ParsePatch builds a Patch from a decoded JSON update payload. The legacy
// "paid": true flag with no explicit status is translated to a status edit
// before anything else; unknown keys and type mismatches are rejected.
func ParsePatch(raw map[string]json.RawMessage) (*Patch, error) {
	p := NewPatch()

	if flag, ok := raw[legacyPaidKey]; ok {
		var paid bool
		if err := json.Unmarshal(flag, &paid); err != nil {
			return nil, fmt.Errorf("%w: %s must be a boolean", ErrInvalidFieldValue, legacyPaidKey)
		}
		if _, hasStatus := raw[FieldStatus.key()]; paid && !hasStatus {
			p.Set(FieldStatus, StatusPaid)
		}
		delete(raw, legacyPaidKey)
	}

	for key := range raw {
		if !editable[Field(key)] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
	}

	// Canonical field order keeps provenance serialization deterministic
	// within a single payload.
	for _, f := range EditableFields {
		val, ok := raw[f.key()]
		if !ok {
			continue
		}
		if isJSONNull(val) {
			if f == FieldStatus {
				return nil, fmt.Errorf("%w: status cannot be null", ErrInvalidStatus)
			}
			p.Set(f, nil)
			continue
		}
		switch {
		case f == FieldStatus:
			var s InvoiceStatus
			if err := json.Unmarshal(val, &s); err != nil || !ValidStatuses[s] {
				return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, string(val))
			}
			p.Set(f, s)
		case numericFields[f]:
			var n float64
			if err := json.Unmarshal(val, &n); err != nil {
				return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidFieldValue, f.key())
			}
			p.Set(f, n)
		default:
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidFieldValue, f.key())
			}
			p.Set(f, s)
		}
	}

	return p, nil
}

func (f Field) key() string { return string(f) }

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
