package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/sessionid"
)

// ProvisionalPrefix marks client-generated identifiers. The server allocates
// durable ids in its own "pS" namespace when the end-of-call webhook lands;
// the two are never reconciled.
const ProvisionalPrefix = "eS"

// Counter yields the next same-day sequence number. Implemented by
// localstate; tests substitute a deterministic counter.
type Counter interface {
	Next(dateKey string) (int, error)
}

// ProvisionalID generates a display/export identifier like "eS_3Feb26-2".
func ProvisionalID(c Counter, t time.Time) (string, error) {
	prefix := sessionid.DatePrefix(ProvisionalPrefix, t)
	dateKey := strings.TrimPrefix(prefix, ProvisionalPrefix+"_")
	n, err := c.Next(dateKey)
	if err != nil {
		return "", fmt.Errorf("next session number: %w", err)
	}
	return sessionid.Format(prefix, n), nil
}
