// Package announce turns lifecycle notices into chat messages and delivers them.
package announce

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"guildpulse/internal/events"
	"guildpulse/internal/lifecycle"
)

// Render formats a notice as a plain chat message.
func Render(n lifecycle.Notice) string {
	e := n.Event
	switch n.Kind {
	case lifecycle.NoticeStart:
		return fmt.Sprintf("**%s has started!** %s Ends <t:%d:R>.", e.Title, effect(e), e.EndsAt.Unix())
	case lifecycle.NoticeEnd:
		if e.Kind == events.KindRaid {
			return fmt.Sprintf("**%s is over.** Final total: %d / %s points.", e.Title, e.CurrentPoints, formatModifier(e.Modifier))
		}
		return fmt.Sprintf("**%s is over.** Thanks for playing!", e.Title)
	case lifecycle.NoticeReminder:
		return fmt.Sprintf("Reminder: **%s** is live. %s %s left.", e.Title, effect(e), humanize(n.Remaining))
	case lifecycle.NoticeGoal:
		return fmt.Sprintf("**%s** goal reached: %d / %s points!", e.Title, e.CurrentPoints, formatModifier(e.Modifier))
	case lifecycle.NoticeCancelled:
		msg := fmt.Sprintf("**%s** has been cancelled by %s.", e.Title, n.Actor)
		if n.Reason != "" {
			msg += " Reason: " + n.Reason
		}
		return msg
	default:
		return fmt.Sprintf("%s: %s", e.Title, n.Kind)
	}
}

func effect(e events.Event) string {
	if e.Kind == events.KindRaid {
		return fmt.Sprintf("Progress: %d / %s points.", e.CurrentPoints, formatModifier(e.Modifier))
	}
	return fmt.Sprintf("All XP is multiplied by %sx.", formatModifier(e.Modifier))
}

func formatModifier(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}

// humanize renders a duration as "2h 5m", dropping seconds.
func humanize(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	d = d.Truncate(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)

	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	return strings.Join(parts, " ")
}
