package scheduler

import (
	"fmt"
	"strings"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

var utilityEmoji = map[domain.Utility]string{
	domain.UtilityWater:    "🚱",
	domain.UtilityGas:      "🔥",
	domain.UtilityElectric: "⚡",
}

var utilityName = map[domain.Utility]string{
	domain.UtilityWater:    "Water",
	domain.UtilityGas:      "Gas",
	domain.UtilityElectric: "Electricity",
}

// timeLayout renders times in the service timezone without a zone
// suffix; subscribers read them as local wall-clock times.
const timeLayout = "02.01.2006 15:04"

// FormatNotification renders the message sent for one record matching
// one tracked address.
func FormatNotification(rec domain.OutageRecord, addr domain.TrackedAddress) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s outage", utilityEmoji[rec.Utility], utilityName[rec.Utility])
	switch rec.Status {
	case domain.StatusPlanned:
		b.WriteString(" (planned)")
	case domain.StatusEmergency:
		b.WriteString(" (emergency)")
	}
	b.WriteString("\n")

	if where := formatAddress(addr); where != "" {
		fmt.Fprintf(&b, "Affects your address: %s\n", where)
	}

	loc := domain.ServiceLocation()
	switch {
	case rec.HasTiming() && !rec.EndTime.IsZero():
		fmt.Fprintf(&b, "From %s until %s\n",
			rec.StartTime.In(loc).Format(timeLayout),
			rec.EndTime.In(loc).Format(timeLayout))
	case rec.HasTiming():
		fmt.Fprintf(&b, "Starting %s\n", rec.StartTime.In(loc).Format(timeLayout))
	}

	b.WriteString("\n")
	b.WriteString(rec.TranslatedText)
	return b.String()
}

func formatAddress(addr domain.TrackedAddress) string {
	switch {
	case addr.Region != "" && addr.Street != "":
		return addr.Region + ", " + addr.Street
	case addr.Region != "":
		return addr.Region
	default:
		return addr.Street
	}
}
