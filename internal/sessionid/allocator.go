// Package sessionid allocates human-readable, date-scoped session
// identifiers of the form <PREFIX>_<DDMmmYY>-<N>.
package sessionid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/parley/internal/store"
)

// ServerPrefix marks durable, server-allocated identifiers. The client uses
// its own "eS" namespace for provisional ids; the two are never reconciled.
const ServerPrefix = "pS"

// maxAttempts bounds the reservation retry loop. Hitting it means something
// other than normal contention is wrong with the store.
const maxAttempts = 64

var months = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// DatePrefix formats the day-scoped identifier prefix, e.g. "pS_3Feb26".
func DatePrefix(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%d%s%02d", prefix, t.Day(), months[t.Month()-1], t.Year()%100)
}

// Format composes a full identifier from a date prefix and sequence number.
func Format(datePrefix string, n int) string {
	return fmt.Sprintf("%s-%d", datePrefix, n)
}

// Allocator hands out collision-free identifiers by reserving the record key
// itself. Counting existing keys only proposes a starting point; the
// conditional put is what actually claims the id, so two racing allocations
// can never settle on the same suffix.
type Allocator struct {
	store  store.Store
	logger *slog.Logger
}

func New(s store.Store, logger *slog.Logger) *Allocator {
	return &Allocator{store: s, logger: logger}
}

// Allocate reserves the smallest available identifier for t's date prefix.
// render produces the value to store under a candidate id, so the stored body
// can embed the identifier it ends up under. On contention the allocator
// retries with the next sequence number; gaps are acceptable, duplicates are
// not.
func (a *Allocator) Allocate(ctx context.Context, t time.Time, render func(id string) ([]byte, error)) (string, error) {
	datePrefix := DatePrefix(ServerPrefix, t)

	entries, err := a.store.List(ctx, datePrefix)
	if err != nil {
		return "", fmt.Errorf("count existing sessions: %w", err)
	}

	n := len(entries) + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		id := Format(datePrefix, n)
		value, err := render(id)
		if err != nil {
			return "", fmt.Errorf("render value for %s: %w", id, err)
		}
		err = a.store.PutIfAbsent(ctx, id, value)
		if err == nil {
			if attempt > 0 {
				a.logger.Info("session id allocated after contention",
					"session_id", id, "attempts", attempt+1)
			}
			return id, nil
		}
		if !errors.Is(err, store.ErrKeyExists) {
			return "", fmt.Errorf("reserve %s: %w", id, err)
		}
		n++
	}
	return "", fmt.Errorf("allocate session id: no free slot after %d attempts under %s", maxAttempts, datePrefix)
}
