package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MovementGroup aggregates movements sharing a tag.
type MovementGroup struct {
	Key       string
	Total     decimal.Decimal
	Count     int
	Movements []Movement
}

// RegisterReport is the derived view of a session.
type RegisterReport struct {
	Register     *CashRegister
	Outflows     []MovementGroup // by category
	Inflows      []MovementGroup // by payment method
	Opening      decimal.Decimal
	TotalIn      decimal.Decimal
	TotalOut     decimal.Decimal
	Expected     decimal.Decimal
	ClosingCount *decimal.Decimal
	Variance     *decimal.Decimal
	InCount      int
	OutCount     int
	Movements    []Movement
}

// BuildRegisterReport groups the movements of r. r.Movements must be fully loaded.
func BuildRegisterReport(r *CashRegister) *RegisterReport {
	movements := make([]Movement, len(r.Movements))
	copy(movements, r.Movements)
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].CreatedAt.Before(movements[j].CreatedAt)
	})

	out := map[string]*MovementGroup{}
	in := map[string]*MovementGroup{}
	var outKeys, inKeys []string
	rep := &RegisterReport{
		Register:  r,
		Opening:   r.OpeningFloat,
		TotalIn:   r.TotalIn,
		TotalOut:  r.TotalOut,
		Expected:  r.AvailableBalance(),
		Movements: movements,
	}

	for _, m := range movements {
		var groups map[string]*MovementGroup
		var key string
		if m.Direction == DirectionOut {
			rep.OutCount++
			groups, key = out, m.Category
			if key == "" {
				key = CategoryOther
			}
			if _, ok := groups[key]; !ok {
				outKeys = append(outKeys, key)
			}
		} else {
			rep.InCount++
			groups, key = in, m.PaymentMethod
			if key == "" {
				key = MethodNotInformed
			}
			if _, ok := groups[key]; !ok {
				inKeys = append(inKeys, key)
			}
		}
		g, ok := groups[key]
		if !ok {
			g = &MovementGroup{Key: key, Total: decimal.Zero}
			groups[key] = g
		}
		g.Total = g.Total.Add(m.Amount)
		g.Count++
		g.Movements = append(g.Movements, m)
	}

	sort.Strings(outKeys)
	sort.Strings(inKeys)
	for _, k := range outKeys {
		rep.Outflows = append(rep.Outflows, *out[k])
	}
	for _, k := range inKeys {
		rep.Inflows = append(rep.Inflows, *in[k])
	}

	if r.Status == RegisterClosed {
		rep.ClosingCount = r.ClosingCount
		rep.Variance = r.Variance
	}
	return rep
}
