package ledger

import (
	"fmt"
	"time"

	"livrocaixa/internal/core"
)

// DefaultMaxRecurrences caps series generation to prevent runaway
// expansion from a bad count or a far-away end date.
const DefaultMaxRecurrences = 360

// RecurrenceRule projects a template transaction into a dated series.
// Exactly one bound applies: a repetition count, or an end date.
// BUSINESS_DAYS supports end-date bounds only.
type RecurrenceRule struct {
	Frequency core.Frequency
	Count     int
	EndDate   core.Date
}

// IsZero reports whether the rule requests no recurrence at all.
func (r RecurrenceRule) IsZero() bool {
	return r.Frequency == "" && r.Count == 0 && r.EndDate.IsZero()
}

// Expand projects template into its dated instances. The template's own
// date is always instance 1. Every instance after the first is forced
// PENDING: future-dated recurrences are never pre-marked as paid. With
// two or more instances each description is suffixed " (i/N)".
//
// A count below 2 with no end date means "no recurrence": the template
// comes back alone and untouched, whatever the frequency says. An end
// date earlier than the template's date also yields the single
// untouched template.
func Expand(template core.Transaction, rule RecurrenceRule, maxCount int) ([]core.Transaction, error) {
	if maxCount <= 0 {
		maxCount = DefaultMaxRecurrences
	}
	if rule.Count <= 1 && rule.EndDate.IsZero() {
		return []core.Transaction{template}, nil
	}
	if !rule.Frequency.IsValid() {
		return nil, core.NewValidationError("frequency", "unknown recurrence frequency")
	}
	if rule.Count > 0 && !rule.EndDate.IsZero() {
		return nil, core.NewValidationError("recurrence", "count and end date are mutually exclusive")
	}
	if err := template.Date.Validate(); err != nil {
		return nil, err
	}

	var dates []core.Date
	switch {
	case rule.Frequency == core.BusinessDays:
		if rule.Count > 0 {
			return nil, core.NewValidationError("recurrence", "business-day series must be bounded by an end date")
		}
		dates = businessDaySeries(template.Date, rule.EndDate, maxCount)
	case rule.Count > 0:
		if rule.Count > maxCount {
			return nil, core.NewValidationError("count", fmt.Sprintf("exceeds the maximum of %d repetitions", maxCount))
		}
		dates = make([]core.Date, 0, rule.Count)
		for i := 0; i < rule.Count; i++ {
			dates = append(dates, stepDate(template.Date, rule.Frequency, i))
		}
	default:
		// End date before the start keeps the template's own date only.
		dates = append(dates, template.Date)
		for i := 1; len(dates) < maxCount; i++ {
			next := stepDate(template.Date, rule.Frequency, i)
			if next.Compare(rule.EndDate) > 0 {
				break
			}
			dates = append(dates, next)
		}
	}

	n := len(dates)
	if n <= 1 {
		return []core.Transaction{template}, nil
	}
	out := make([]core.Transaction, n)
	for i, d := range dates {
		inst := template
		inst.Date = d
		inst.Description = fmt.Sprintf("%s (%d/%d)", template.Description, i+1, n)
		if i > 0 {
			inst.Status = core.Pending
		}
		out[i] = inst
	}
	return out, nil
}

// stepDate advances the series date by i steps of the given frequency.
// Month and year steps clamp to the last valid day of the target month
// (Jan 31 + 1 month -> Feb 29/28).
func stepDate(start core.Date, freq core.Frequency, i int) core.Date {
	switch freq {
	case core.Daily:
		return start.AddDays(i)
	case core.Weekly:
		return start.AddDays(7 * i)
	case core.Monthly:
		return addMonthsClamped(start, i)
	case core.Yearly:
		return addMonthsClamped(start, 12*i)
	default:
		return start
	}
}

// addMonthsClamped advances by whole months without the normalization
// time.AddDate would apply (Jan 31 + 1 month must not become Mar 2/3).
func addMonthsClamped(start core.Date, months int) core.Date {
	year, month, day := start.Date()
	m := int(month) + months
	year += (m - 1) / 12
	m = (m-1)%12 + 1

	// Day zero of the following month is the last day of the target one.
	lastDay := time.Date(year, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(year, m, day)
}

// businessDaySeries walks from start to end one calendar day at a time,
// emitting every Monday-to-Friday date. A weekend start shifts the first
// instance to the following Monday.
func businessDaySeries(start, end core.Date, maxCount int) []core.Date {
	if end.Compare(start) < 0 {
		return []core.Date{start}
	}
	var dates []core.Date
	for d := start; d.Compare(end) <= 0 && len(dates) < maxCount; d = d.AddDays(1) {
		if d.IsBusinessDay() {
			dates = append(dates, d)
		}
	}
	if len(dates) == 0 {
		return []core.Date{start}
	}
	return dates
}
