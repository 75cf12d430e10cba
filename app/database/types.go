package database

import (
	"time"
)

// Programme is one row of the epg table.
type Programme struct {
	Start       time.Time
	Stop        time.Time
	Title       string
	Channel     string
	Description string
}
