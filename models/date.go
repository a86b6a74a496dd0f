package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

// Date ist ein Kalenderdatum ohne Uhrzeit. In der Datenbank als DATE
// gespeichert, in JSON als "YYYY-MM-DD".
type Date struct {
	datatypes.Date
}

// NewDate erstellt ein Datum in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{datatypes.Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))}
}

// DateOf kürzt einen Zeitpunkt auf seinen Kalendertag.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) Time() time.Time { return time.Time(d.Date) }

func (d Date) Year() int { return d.Time().Year() }

func (d Date) String() string { return d.Time().Format(dateLayout) }

func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// Zeitstempel aus älteren Exporten akzeptieren
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", s, err)
		}
	}
	*d = DateOf(t)
	return nil
}
