package temporalx

import (
	"errors"
	"fmt"
	"strings"

	"go.temporal.io/sdk/temporal"
)

// FormatFailureChain renders a verbose multi-line description of a Temporal
// failure chain for the error journal. It walks Unwrap recursively and
// includes the activity/workflow identifiers each error type carries, so an
// operator can find the failing run without the Temporal UI.
func FormatFailureChain(err error) string {
	var lines []string
	seen := map[error]bool{}
	level := 0
	for cur := err; cur != nil && !seen[cur]; cur = errors.Unwrap(cur) {
		seen[cur] = true
		lines = append(lines, formatFailure(level, cur))
		level++
	}
	return strings.Join(lines, "\n")
}

func formatFailure(level int, err error) string {
	parts := []string{
		fmt.Sprintf(" [level %d]", level),
		fmt.Sprintf(" %T", err),
		fmt.Sprintf("message=%s", err.Error()),
	}

	switch e := err.(type) {
	case *temporal.ApplicationError:
		if e.Type() != "" {
			parts = append(parts, fmt.Sprintf("type=%s", e.Type()))
		}
		parts = append(parts, fmt.Sprintf("non_retryable=%v", e.NonRetryable()))
		if e.HasDetails() {
			var detail string
			if derr := e.Details(&detail); derr == nil && detail != "" {
				parts = append(parts, fmt.Sprintf("details=%s", detail))
			}
		}
	case *temporal.ActivityError:
		name := ""
		if at := e.ActivityType(); at != nil {
			name = at.GetName()
		}
		parts = append(parts,
			fmt.Sprintf("activity_type=%s activity_id=%s identity=%s", name, e.ActivityID(), e.Identity()),
			fmt.Sprintf("scheduled_event_id=%d started_event_id=%d", e.ScheduledEventID(), e.StartedEventID()),
			fmt.Sprintf("retry_state=%s", e.RetryState()),
		)
	case *temporal.TimeoutError:
		parts = append(parts, fmt.Sprintf("timeout_type=%s", e.TimeoutType()))
	case *temporal.PanicError:
		parts = append(parts, "stack_trace:", e.StackTrace())
	}
	return strings.Join(parts, "\n")
}
