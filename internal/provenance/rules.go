// Package provenance implements the policy rules for manual invoice edits:
// which edits enter the manually-edited set and how status transitions drive
// the paid_at timestamp.
package provenance

import (
	"encoding/json"
	"time"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
)

// Decode parses a stored provenance set. A null or unparseable value is
// treated as the empty set.
func Decode(stored *string) []string {
	if stored == nil {
		return []string{}
	}
	var fields []string
	if err := json.Unmarshal([]byte(*stored), &fields); err != nil {
		return []string{}
	}
	if fields == nil {
		return []string{}
	}
	return fields
}

// Merge unions the stored provenance set with the fields present in the
// patch. Membership is set-like but insertion order of first-seen fields is
// kept. Every field present in the patch is recorded, even when the new value
// equals the current one: an update records intent to confirm, not just a
// value change.
func Merge(stored *string, patched []domain.Field) []string {
	merged := Decode(stored)
	seen := make(map[string]bool, len(merged))
	for _, f := range merged {
		seen[f] = true
	}
	for _, f := range patched {
		if !seen[string(f)] {
			seen[string(f)] = true
			merged = append(merged, string(f))
		}
	}
	return merged
}

// Serialize encodes a provenance set for storage. It is called on every
// update, including no-field updates, which simply re-serialize the
// unchanged set.
func Serialize(fields []string) string {
	if fields == nil {
		fields = []string{}
	}
	data, _ := json.Marshal(fields)
	return string(data)
}

// PaidAtEffect computes the paid_at side effect of a patch. The returned
// apply flag is false when the patch carries no status, in which case paid_at
// is left untouched regardless of other edits. Transitioning to paid stamps
// now; leaving paid clears the timestamp.
func PaidAtEffect(current domain.InvoiceStatus, patch *domain.Patch, now time.Time) (paidAt *time.Time, apply bool) {
	next, ok := patch.Status()
	if !ok {
		return nil, false
	}
	if next == domain.StatusPaid {
		return &now, true
	}
	if current == domain.StatusPaid {
		return nil, true
	}
	return nil, false
}
