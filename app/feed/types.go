package feed

import (
	"fmt"
	"time"
)

// Mode selects the payload format and the remote file extension.
type Mode string

const (
	ModeXML  Mode = "xml.gz"
	ModeJSON Mode = "js.gz"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeXML, ModeJSON:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unsupported feed mode '%s' (expected %s or %s)", s, ModeXML, ModeJSON)
	}
}

// DefaultBaseURL returns the provider endpoint serving payloads of this mode.
func (m Mode) DefaultBaseURL() string {
	if m == ModeJSON {
		return "http://json.xmltv.se"
	}
	return "http://xmltv.xmltv.se"
}

// Date is a calendar date without a time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Dates returns the given number of consecutive dates starting with the date of now.
func Dates(now time.Time, days int) []Date {
	dates := make([]Date, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, DateOf(now.AddDate(0, 0, i)))
	}
	return dates
}

// Key identifies one channel's listings on one calendar date.
type Key struct {
	ProviderID string
	Date       Date
}

func (k Key) String() string {
	return k.ProviderID + "_" + k.Date.String()
}

// Path returns the remote resource name for the key, e.g. nrk2.nrk.no_2024-01-31.xml.gz.
func (k Key) Path(mode Mode) string {
	return k.String() + "." + string(mode)
}

type Programme struct {
	Start       time.Time
	Stop        time.Time
	Title       string
	Description string
	Channel     string // catalog display name
}

func (p Programme) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("title is empty")
	}
	if !p.Stop.After(p.Start) {
		return fmt.Errorf("stop %s is not after start %s", p.Stop.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	}
	return nil
}

// Result is the outcome of parsing one payload.
type Result struct {
	Programmes []Programme
	Dropped    int // records rejected by Programme.Validate
}
