package session

import (
	"fmt"
	"strings"
)

// DefaultLabels are the per-role speaker labels used in exports.
var DefaultLabels = map[string]string{
	"user":      "Jordan",
	"assistant": "eA",
}

// ExportOptions customizes transcript export. A nil Labels map falls back to
// DefaultLabels; roles missing from the map render under their raw role
// name.
type ExportOptions struct {
	Labels map[string]string
}

// FormatDuration renders seconds as "XmYs".
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// ExportFilename is the suggested filename for a downloaded transcript.
func ExportFilename(sessionID string) string {
	return sessionID + "_sT_raw.md"
}

// Export renders the session as a markdown document: a fenced header block
// followed by one line per finalized message. It is a pure projection of the
// message log; an empty session still produces a well-formed header.
func (c *Controller) Export(opts ExportOptions) string {
	c.mu.Lock()
	sessionID := c.sessionID
	duration := c.duration
	messages := make([]Message, len(c.messages))
	copy(messages, c.messages)
	startedAt := c.startedAt
	if startedAt.IsZero() {
		startedAt = c.now()
	}
	c.mu.Unlock()

	labels := opts.Labels
	if labels == nil {
		labels = DefaultLabels
	}

	var b strings.Builder
	fmt.Fprintf(&b, "---\n")
	fmt.Fprintf(&b, "session_id: %s\n", sessionID)
	fmt.Fprintf(&b, "duration: %s\n", FormatDuration(duration))
	fmt.Fprintf(&b, "start_time: T-%02d%02d\n", startedAt.Hour(), startedAt.Minute())
	fmt.Fprintf(&b, "summary: [TO BE FILLED]\n")
	fmt.Fprintf(&b, "---\n\n")

	for _, msg := range messages {
		label, ok := labels[msg.Role]
		if !ok {
			label = msg.Role
		}
		fmt.Fprintf(&b, "**%s:** %s\n\n", label, msg.Text)
	}
	return b.String()
}
