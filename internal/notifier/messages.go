package notifier

import (
	"fmt"

	"github.com/mescon/Hassarr/internal/domain"
)

// messageFormatter renders one event type.
type messageFormatter func(ev domain.Event) string

var messageFormatters = map[domain.EventType]messageFormatter{
	domain.MediaAdded:       fmtMediaAdded,
	domain.MediaAddFailed:   fmtMediaAddFailed,
	domain.MediaRemoved:     fmtMediaRemoved,
	domain.JobTriggered:     fmtJobTriggered,
	domain.OverseerrOffline: fmtOverseerrOffline,
	domain.OverseerrOnline:  fmtOverseerrOnline,
}

// FormatMessage renders ev as a one-line notification.
func FormatMessage(ev domain.Event) string {
	if f, ok := messageFormatters[ev.EventType]; ok {
		return f(ev)
	}
	return fmt.Sprintf("Hassarr: %s", ev.EventType)
}

func byUser(d domain.MediaEventData) string {
	if d.Username == "" {
		return ""
	}
	return " by " + d.Username
}

func fmtMediaAdded(ev domain.Event) string {
	d, _ := ev.ParseMediaEventData()
	msg := fmt.Sprintf("🎬 Requested %s%s", d.Title, byUser(d))
	if d.Seasons != "" {
		msg += fmt.Sprintf(" (seasons: %s)", d.Seasons)
	}
	if d.Is4k {
		msg += " in 4K"
	}
	return msg
}

func fmtMediaAddFailed(ev domain.Event) string {
	d, _ := ev.ParseMediaEventData()
	if d.Error == "" {
		return fmt.Sprintf("❌ Request for %s failed", d.Title)
	}
	return fmt.Sprintf("❌ Request for %s failed: %s", d.Title, d.Error)
}

func fmtMediaRemoved(ev domain.Event) string {
	d, _ := ev.ParseMediaEventData()
	return fmt.Sprintf("🗑️ Removed %s from Overseerr%s", d.Title, byUser(d))
}

func fmtJobTriggered(ev domain.Event) string {
	name := ev.GetStringOr("job_name", "")
	if name == "" {
		name = ev.GetStringOr("job_id", ev.AggregateID)
	}
	if ev.GetStringOr("source", "") == "schedule" {
		return fmt.Sprintf("⏰ Scheduled job started: %s", name)
	}
	return fmt.Sprintf("▶️ Job started: %s", name)
}

func fmtOverseerrOffline(ev domain.Event) string {
	if reason := ev.GetStringOr("error", ""); reason != "" {
		return "🔴 Overseerr is offline: " + reason
	}
	return "🔴 Overseerr is offline"
}

func fmtOverseerrOnline(domain.Event) string {
	return "🟢 Overseerr is back online"
}
