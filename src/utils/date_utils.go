package utils

import (
	"fmt"
	"log"
	"time"
)

// StatementDateFormat is the date layout CAS statements use, e.g. "01-Apr-2023".
const StatementDateFormat = "02-Jan-2006"

// DefaultDateFormat is the ISO layout used everywhere outside statement parsing.
const DefaultDateFormat = "2006-01-02"

// ParseDate parses an ISO formatted date string.
// Logs an error and returns zero time if parsing fails.
func ParseDate(dateStr string) time.Time {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err != nil {
		log.Printf("Error parsing date '%s' with format '%s': %v. Returning zero time.", dateStr, DefaultDateFormat, err)
		return time.Time{}
	}
	return t
}

// ParseStatementDate parses a date in the CAS statement layout.
func ParseStatementDate(dateStr string) (time.Time, error) {
	return time.Parse(StatementDateFormat, dateStr)
}

// FinancialYear returns the Indian financial year label for a date,
// e.g. 2023-06-15 falls in "FY2023-24".
func FinancialYear(date time.Time) string {
	startYear := date.Year()
	if date.Month() < time.April {
		startYear--
	}
	return fmt.Sprintf("FY%d-%02d", startYear, (startYear+1)%100)
}

// FinancialYearRange returns the first and last day of the financial year
// containing the given date.
func FinancialYearRange(date time.Time) (time.Time, time.Time) {
	startYear := date.Year()
	if date.Month() < time.April {
		startYear--
	}
	from := time.Date(startYear, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(startYear+1, time.March, 31, 0, 0, 0, 0, time.UTC)
	return from, to
}

// DateInFinancialYear reports whether a date falls in the financial year
// identified by its label, e.g. "FY2023-24".
func DateInFinancialYear(date time.Time, fy string) bool {
	return FinancialYear(date) == fy
}

// ParseFinancialYear resolves a financial year label such as "FY2023-24" to
// its first and last day.
func ParseFinancialYear(fy string) (time.Time, time.Time, error) {
	var startYear, endSuffix int
	if _, err := fmt.Sscanf(fy, "FY%d-%d", &startYear, &endSuffix); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid financial year label %q: %w", fy, err)
	}
	if (startYear+1)%100 != endSuffix {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid financial year label %q: year suffix mismatch", fy)
	}
	from := time.Date(startYear, time.April, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(startYear+1, time.March, 31, 0, 0, 0, 0, time.UTC)
	return from, to, nil
}
