package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Periodicity is the recurrence unit of a plan.
type Periodicity string

const (
	PeriodicityMonthly    Periodicity = "MONTHLY"
	PeriodicityBimonthly  Periodicity = "BIMONTHLY"
	PeriodicityQuarterly  Periodicity = "QUARTERLY"
	PeriodicitySemiannual Periodicity = "SEMIANNUAL"
	PeriodicityAnnual     Periodicity = "ANNUAL"
	PeriodicityMonths     Periodicity = "MONTHS" // custom: MonthCount months
	PeriodicityDays       Periodicity = "DAYS"   // custom: DayCount days
)

var periodicityMonths = map[Periodicity]int{
	PeriodicityMonthly:    1,
	PeriodicityBimonthly:  2,
	PeriodicityQuarterly:  3,
	PeriodicitySemiannual: 6,
	PeriodicityAnnual:     12,
}

// IsValid reports whether p is a known periodicity.
func (p Periodicity) IsValid() bool {
	_, fixed := periodicityMonths[p]
	return fixed || p == PeriodicityMonths || p == PeriodicityDays
}

// ChargeType says whether a plan bills once or every period.
type ChargeType string

const (
	ChargeRecurring ChargeType = "RECURRING"
	ChargeOneTime   ChargeType = "ONE_TIME"
)

// Plan is a billing template referenced by enrollments.
type Plan struct {
	ID          string
	TenantID    string
	Code        string
	Name        string
	Periodicity Periodicity
	ChargeType  ChargeType
	Price       decimal.Decimal
	MonthCount  *int
	DayCount    *int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsRecurring reports whether the plan produces a charge every period.
func (p *Plan) IsRecurring() bool {
	return p.ChargeType == ChargeRecurring
}

// Validate checks the plan definition.
func (p *Plan) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return NewValidationError("plan name is required")
	}
	if err := ValidateNonNegative("price", p.Price); err != nil {
		return err
	}
	if !p.Periodicity.IsValid() {
		return NewValidationError("invalid periodicity %q", p.Periodicity)
	}
	if p.ChargeType != ChargeRecurring && p.ChargeType != ChargeOneTime {
		return NewValidationError("invalid charge type %q", p.ChargeType)
	}
	if p.ChargeType == ChargeOneTime && p.Periodicity == PeriodicityMonthly {
		return NewValidationError("a one-time plan cannot have monthly periodicity")
	}
	if p.Periodicity == PeriodicityMonths && (p.MonthCount == nil || *p.MonthCount < 1) {
		return NewValidationError("month count must be at least 1 for MONTHS periodicity")
	}
	if p.Periodicity == PeriodicityDays && (p.DayCount == nil || *p.DayCount < 1) {
		return NewValidationError("day count must be at least 1 for DAYS periodicity")
	}
	return nil
}

// EndDate is the end of the validity window of an enrollment starting at start.
func (p *Plan) EndDate(start time.Time) time.Time {
	if months, ok := periodicityMonths[p.Periodicity]; ok {
		return AddMonthsClamped(start, months)
	}
	switch p.Periodicity {
	case PeriodicityMonths:
		if p.MonthCount != nil {
			return AddMonthsClamped(start, *p.MonthCount)
		}
	case PeriodicityDays:
		if p.DayCount != nil {
			return AddDays(start, *p.DayCount)
		}
	}
	return AddMonthsClamped(start, 1)
}

// HasFiniteDuration reports whether the plan carries an explicit month or day count.
func (p *Plan) HasFiniteDuration() bool {
	return (p.MonthCount != nil && *p.MonthCount > 0) || (p.DayCount != nil && *p.DayCount > 0)
}

// Expired reports whether an enrollment started at start has outlived the plan duration.
func (p *Plan) Expired(start, today time.Time) bool {
	if !p.HasFiniteDuration() {
		return false
	}
	expiry := DateOf(start)
	if p.MonthCount != nil && *p.MonthCount > 0 {
		expiry = AddMonthsClamped(expiry, *p.MonthCount)
	}
	if p.DayCount != nil && *p.DayCount > 0 {
		expiry = AddDays(expiry, *p.DayCount)
	}
	return DateOf(today).After(expiry)
}
