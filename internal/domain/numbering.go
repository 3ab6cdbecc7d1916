package domain

import "fmt"

// Series names a sequential number counter.
type Series string

const (
	SeriesRegister   Series = "cash_register"
	SeriesReceivable Series = "receivable"
	SeriesPayable    Series = "payable"
	SeriesEnrollment Series = "enrollment"
	SeriesPlan       Series = "plan"
)

var seriesFormat = map[Series]string{
	SeriesRegister:   "CX%05d",
	SeriesReceivable: "CR%05d",
	SeriesPayable:    "CP%05d",
	SeriesEnrollment: "M%05d",
	SeriesPlan:       "P%04d",
}

// FormatNumber renders the human-readable number for value n of a series.
func FormatNumber(s Series, n int64) string {
	f, ok := seriesFormat[s]
	if !ok {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf(f, n)
}
