package extractor

import (
	"fmt"
	"strings"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
)

// BuildPrompt concatenates the documents under # {filename} headers with ---
// separators and appends the fixed extraction instructions.
func BuildPrompt(docs []domain.NormalizedDocument) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "# %s\n\n%s\n", doc.Filename, doc.Markdown)
	}
	b.WriteString("\n---\n\n")
	b.WriteString(extractionInstructions)
	return b.String()
}

const extractionInstructions = `The documents above are an email and its attachments, which together should describe an invoice to be paid.

Extract the invoice details and return ONLY a JSON object with exactly this structure:

{
  "items": ["description of each line item"],
  "supplier": "name of the company issuing the invoice",
  "amount": 123.45,
  "currency": "three-letter currency code, e.g. DKK or EUR",
  "invoiceId": "the invoice number or identifier",
  "accountIBAN": "IBAN to pay to",
  "accountBIC": "BIC/SWIFT code",
  "accountREG": "national bank registration number",
  "accountNumber": "national bank account number",
  "lastPaymentDate": "due date as written on the invoice",
  "sourceFileReference": "filename of the document the invoice was found in"
}

Use null for any field that cannot be determined from the documents. Use an empty array for items when no line items are listed. Do not invent values.`
