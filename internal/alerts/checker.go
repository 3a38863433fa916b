package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Rules holds the alert thresholds
type Rules struct {
	LongACW     time.Duration
	LongContact time.Duration
	LongBreak   time.Duration
}

// DefaultRules are the thresholds used when none are configured
var DefaultRules = Rules{
	LongACW:     5 * time.Minute,
	LongContact: 15 * time.Minute,
	LongBreak:   10 * time.Minute,
}

// Check evaluates the rules against s at now
func Check(s types.Session, now time.Time, rules Rules) []types.AgentAlert {
	alerts := []types.AgentAlert{}

	if s.ACWStart != nil {
		if dur := now.Sub(*s.ACWStart); dur > rules.LongACW {
			alerts = append(alerts, types.AgentAlert{
				Rule:     "acw_long",
				Severity: types.SeverityWarning,
				Message:  fmt.Sprintf("ACW for %s", formatDuration(dur)),
			})
		}
	}

	if s.Contact != nil && s.ContactStart != nil && s.ACWStart == nil {
		if dur := now.Sub(*s.ContactStart); dur > rules.LongContact {
			alerts = append(alerts, types.AgentAlert{
				Rule:     "contact_long",
				Severity: types.SeverityWarning,
				Message:  fmt.Sprintf("On contact for %s", formatDuration(dur)),
			})
		}
	}

	if s.AgentState != nil && isBreak(s.AgentState.Name) && !s.StateStart.IsZero() {
		if dur := now.Sub(s.StateStart); dur > rules.LongBreak {
			alerts = append(alerts, types.AgentAlert{
				Rule:     "break_long",
				Severity: types.SeverityCritical,
				Message:  fmt.Sprintf("%s for %s", s.AgentState.Name, formatDuration(dur)),
			})
		}
	}

	return alerts
}

func isBreak(state string) bool {
	switch strings.ToLower(state) {
	case "break", "lunch":
		return true
	}
	return false
}

func formatDuration(d time.Duration) string {
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if mins >= 60 {
		hours := mins / 60
		mins = mins % 60
		return fmt.Sprintf("%dh%dm", hours, mins)
	}
	return fmt.Sprintf("%dm%ds", mins, secs)
}
