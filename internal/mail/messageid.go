package mail

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeriveMessageID returns the globally unique identity for an inbound
// message. The transport's Message-ID header wins when present (angle
// brackets stripped); otherwise a timestamp-based identifier is generated.
func DeriveMessageID(header string, now time.Time) string {
	id := strings.TrimSpace(header)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	if id != "" {
		return id
	}
	return fmt.Sprintf("generated-%s-%s", now.UTC().Format("20060102150405"), uuid.NewString()[:8])
}
