package notify

import (
	"fmt"
	"time"

	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
)

// Message renders the text an owner receives for one occurrence.
func Message(entry repository.Entry, eventAt time.Time) string {
	return fmt.Sprintf(
		"Training reminder: your %s %s session starts in %s.",
		schedule.WeekdayOf(eventAt),
		eventAt.Format("15:04"),
		schedule.FormatLead(entry.Rule.LeadMinutes),
	)
}
