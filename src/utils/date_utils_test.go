package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	assert.Equal(t, time.Date(2023, time.June, 15, 0, 0, 0, 0, time.UTC), ParseDate("2023-06-15"))
	assert.True(t, ParseDate("not-a-date").IsZero())
}

func TestParseStatementDate(t *testing.T) {
	d, err := ParseStatementDate("01-Apr-2023")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseStatementDate("2023-04-01")
	assert.Error(t, err)
}

func TestFinancialYearBoundaries(t *testing.T) {
	assert.Equal(t, "FY2022-23", FinancialYear(time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "FY2023-24", FinancialYear(time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "FY2023-24", FinancialYear(time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)))

	// Century rollover keeps the two digit suffix.
	assert.Equal(t, "FY2099-00", FinancialYear(time.Date(2099, time.June, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFinancialYearRange(t *testing.T) {
	from, to := FinancialYearRange(time.Date(2023, time.June, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), to)
}

func TestDateInFinancialYear(t *testing.T) {
	d := time.Date(2023, time.June, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, DateInFinancialYear(d, "FY2023-24"))
	assert.False(t, DateInFinancialYear(d, "FY2022-23"))
}

func TestParseFinancialYear(t *testing.T) {
	from, to, err := ParseFinancialYear("FY2023-24")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), to)

	_, _, err = ParseFinancialYear("2023-24")
	assert.Error(t, err)

	_, _, err = ParseFinancialYear("FY2023-25")
	assert.Error(t, err)
}
