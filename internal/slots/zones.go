package slots

import (
	"fmt"
	"strings"
	"time"
)

// SupportedZones are the IANA zones offered by the timezone picker.
var SupportedZones = []string{
	"Pacific/Honolulu",
	"America/Anchorage",
	"America/Los_Angeles",
	"America/Denver",
	"America/Phoenix",
	"America/Chicago",
	"America/New_York",
	"America/Halifax",
	"America/Sao_Paulo",
	"Atlantic/Azores",
	"UTC",
	"Europe/London",
	"Europe/Paris",
	"Europe/Berlin",
	"Europe/Athens",
	"Africa/Johannesburg",
	"Europe/Moscow",
	"Asia/Dubai",
	"Asia/Karachi",
	"Asia/Kolkata",
	"Asia/Dhaka",
	"Asia/Bangkok",
	"Asia/Singapore",
	"Asia/Shanghai",
	"Asia/Tokyo",
	"Australia/Adelaide",
	"Australia/Sydney",
	"Pacific/Auckland",
}

// ZoneOption is one entry of the timezone picker.
type ZoneOption struct {
	Name     string `json:"name"`
	Clock    string `json:"clock"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// ZoneOptions lists SupportedZones with the wall clock each shows at now,
// e.g. "Asia/Tokyo (6:00 PM)". The zone named current is marked selected and
// is appended when it is not one of the supported zones. Zones that cannot be
// loaded are skipped.
func ZoneOptions(now time.Time, current string) []ZoneOption {
	current = strings.TrimSpace(current)
	names := SupportedZones
	if current != "" && !containsZone(names, current) {
		names = append(append([]string(nil), names...), current)
	}

	out := make([]ZoneOption, 0, len(names))
	for _, name := range names {
		loc, err := LoadZone(name)
		if err != nil {
			continue
		}
		clock := DisplayLabel(now, loc)
		out = append(out, ZoneOption{
			Name:     name,
			Clock:    clock,
			Label:    fmt.Sprintf("%s (%s)", name, clock),
			Selected: name == current,
		})
	}
	return out
}

func containsZone(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
