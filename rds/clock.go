package rds

import "fmt"

// ClockTime is the broadcast date and time from a group 4A, with the
// station's local time offset from UTC in half hours.
type ClockTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int

	// OffsetHalfHours is negative for stations west of UTC.
	OffsetHalfHours int
}

// Date formats the broadcast date as YYYY-MM-DD.
func (ct ClockTime) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", ct.Year, ct.Month, ct.Day)
}

// Time formats the broadcast time as HH:MM.
func (ct ClockTime) Time() string {
	return fmt.Sprintf("%02d:%02d", ct.Hour, ct.Minute)
}

// Offset formats the UTC offset as a signed hour count, e.g. "+1.0h".
func (ct ClockTime) Offset() string {
	sign := "+"
	half := ct.OffsetHalfHours
	if half < 0 {
		sign = "-"
		half = -half
	}
	return fmt.Sprintf("%s%.1fh", sign, float64(half)*0.5)
}

func (ct ClockTime) String() string {
	return ct.Date() + " " + ct.Time() + " UTC" + ct.Offset()
}

// mjdToCivil converts a Modified Julian Day number to a civil calendar date
// using the classical truncated-division approximation. Callers must reject
// mjd <= 0 first; the formula is not meaningful there.
func mjdToCivil(mjd int) (year, month, day int) {
	year = int((float64(mjd) - 15078.2) / 365.25)
	month = int((float64(mjd) - 14956.1 - float64(int(float64(year)*365.25))) / 30.6001)
	day = mjd - 14956 - int(float64(year)*365.25) - int(float64(month)*30.6001)

	if month > 13 {
		month -= 13
		year++
	} else {
		month--
	}
	year += 1900
	return year, month, day
}
