package projection

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

const timestampLayout = "2006-01-02 15:04:05 -07:00"

// FormatTimestamp renders a reading timestamp.
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

// FormatDuration renders d as [-][d.]hh:mm:ss[.fffffff], with the fraction in
// 100ns ticks.
func FormatDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	ticks := d / 100

	if days > 0 {
		fmt.Fprintf(&b, "%d.", days)
	}
	fmt.Fprintf(&b, "%02d:%02d:%02d", hours, minutes, seconds)
	if ticks > 0 {
		fmt.Fprintf(&b, ".%07d", ticks)
	}
	return b.String()
}

// FormatPosition renders a coordinate pair as "lat; lon".
func FormatPosition(p domain.GeoPosition) string {
	return FormatFloat(p.Latitude) + "; " + FormatFloat(p.Longitude)
}

// FormatFloat renders v with the shortest exact representation.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func FormatInt(v int) string {
	return strconv.Itoa(v)
}
