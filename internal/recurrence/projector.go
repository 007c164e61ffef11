// Package recurrence expands scheduled-transaction rules into projected
// transaction instances over a date window. It is pure: no store access,
// no mutation, and identical inputs produce identical output.
package recurrence

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nrajesh/budget-it-sub000/internal/ledger"
)

// MaxOccurrences caps the per-rule iteration count. A malformed or very
// fine-grained rule combined with a wide window must not loop unbounded;
// 1825 covers five years of daily stepping.
const MaxOccurrences = 1825

// step is a recurrence stride: count units per round.
type step struct {
	unit  byte // 'd', 'w', 'm' or 'y'
	count int
}

var namedSteps = map[string]step{
	"daily":       {'d', 1},
	"weekly":      {'w', 1},
	"bi-weekly":   {'w', 2},
	"fortnightly": {'w', 2},
	"monthly":     {'m', 1},
	"quarterly":   {'m', 3},
	"yearly":      {'y', 1},
}

var reShorthand = regexp.MustCompile(`^(\d+)([dwmy])$`)

// resolveStep maps a frequency to its stride. Unrecognized values fall back
// to monthly step 1 rather than erroring; one odd rule must not block the
// whole forecast.
func resolveStep(f ledger.Frequency) step {
	key := strings.ToLower(strings.TrimSpace(string(f)))
	if st, ok := namedSteps[key]; ok {
		return st
	}
	if m := reShorthand.FindStringSubmatch(key); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return step{m[2][0], n}
		}
	}
	return step{'m', 1}
}

// nth returns the k-th occurrence of the series anchored at anchor.
// Multiplying from the anchor instead of accumulating keeps month-end
// anchors from drifting over long series.
func (s step) nth(anchor time.Time, k int) time.Time {
	switch s.unit {
	case 'd':
		return anchor.AddDate(0, 0, k*s.count)
	case 'w':
		return anchor.AddDate(0, 0, 7*k*s.count)
	case 'y':
		return anchor.AddDate(k*s.count, 0, 0)
	default:
		return anchor.AddDate(0, k*s.count, 0)
	}
}

// startOfDay and endOfDay pin window comparisons to day granularity.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

// InstanceID derives the deterministic virtual id for one occurrence of a
// rule. The same (rule, day) pair always maps to the same id.
func InstanceID(ruleID uuid.UUID, occurrence time.Time) uuid.UUID {
	return uuid.NewSHA1(ruleID, []byte(startOfDay(occurrence).Format("2006-01-02")))
}

// Project expands each rule into the concrete occurrences falling inside
// [windowStart, windowEnd] (inclusive, day granularity) and returns them
// sorted ascending by date. Rules with an unparsable anchor date are
// skipped. Projected instances are Transaction-shaped but never persisted.
func Project(rules []ledger.ScheduledTransaction, windowStart, windowEnd time.Time) []ledger.Transaction {
	lo := startOfDay(windowStart)
	hi := endOfDay(windowEnd)
	out := make([]ledger.Transaction, 0)
	for _, rule := range rules {
		out = append(out, projectRule(rule, lo, hi)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func projectRule(rule ledger.ScheduledTransaction, lo, hi time.Time) []ledger.Transaction {
	if rule.Date.IsZero() {
		// unparsable anchor: skip the rule, not the projection
		return nil
	}
	anchor := startOfDay(rule.Date)
	var until time.Time
	if rule.EndDate != nil {
		until = endOfDay(*rule.EndDate)
	}
	st := resolveStep(rule.Frequency)
	// Fast-forward to the first occurrence at or after the window start so a
	// far-past anchor cannot starve a wide window; occurrences are monotonic
	// in k, so binary search applies. The safety cap counts rounds from there.
	first := sort.Search(1<<22, func(k int) bool { return !st.nth(anchor, k).Before(lo) })
	out := make([]ledger.Transaction, 0)
	for k := first; k < first+MaxOccurrences; k++ {
		d := st.nth(anchor, k)
		if d.After(hi) {
			break
		}
		if rule.EndDate != nil && d.After(until) {
			break
		}
		out = append(out, instance(rule, d))
	}
	return out
}

// instance builds the synthetic transaction for one occurrence. All fields
// come from the rule; the id is deterministic per (rule, day).
func instance(rule ledger.ScheduledTransaction, occurrence time.Time) ledger.Transaction {
	return ledger.Transaction{
		ID:                InstanceID(rule.ID, occurrence),
		LedgerID:          rule.LedgerID,
		Date:              occurrence,
		Amount:            rule.Amount,
		Currency:          rule.Currency,
		Account:           rule.Account,
		Vendor:            rule.Vendor,
		Category:          rule.Category,
		SubCategory:       rule.SubCategory,
		Remarks:           rule.Remarks,
		RecurrenceID:      rule.ID,
		IsScheduledOrigin: true,
		IsProjected:       true,
	}
}
