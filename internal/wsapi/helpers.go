package wsapi

import (
	"time"

	"github.com/pulsemeet/meetingtracker/internal/timeutil"
)

func isoOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return timeutil.ISOFormatUTC(t)
}
