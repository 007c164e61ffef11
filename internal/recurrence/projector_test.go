package recurrence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/nrajesh/budget-it-sub000/internal/ledger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rule(freq ledger.Frequency, anchor time.Time, end *time.Time) ledger.ScheduledTransaction {
	amt, _ := money.NewAmountFromMinorUnits("USD", -1500)
	return ledger.ScheduledTransaction{
		ID:        uuid.New(),
		LedgerID:  uuid.New(),
		Date:      anchor,
		Amount:    amt,
		Currency:  "USD",
		Account:   "Checking",
		Vendor:    "Landlord",
		Category:  "Rent",
		Frequency: freq,
		EndDate:   end,
	}
}

func dates(instances []ledger.Transaction) []string {
	out := make([]string, 0, len(instances))
	for _, in := range instances {
		out = append(out, in.Date.Format("2006-01-02"))
	}
	return out
}

func wantDates(t *testing.T, got []ledger.Transaction, want ...string) {
	t.Helper()
	gs := dates(got)
	if len(gs) != len(want) {
		t.Fatalf("expected %d instances %v, got %d: %v", len(want), want, len(gs), gs)
	}
	for i := range want {
		if gs[i] != want[i] {
			t.Fatalf("instance %d: expected %s, got %s", i, want[i], gs[i])
		}
	}
}

func TestProject_MonthlyWindowInclusive(t *testing.T) {
	r := rule(ledger.FrequencyMonthly, day(2024, 1, 1), nil)
	got := Project([]ledger.ScheduledTransaction{r}, day(2024, 1, 1), day(2024, 3, 1))
	wantDates(t, got, "2024-01-01", "2024-02-01", "2024-03-01")
}

func TestProject_ShorthandTwoWeeks(t *testing.T) {
	r := rule(ledger.Frequency("2w"), day(2024, 1, 1), nil)
	got := Project([]ledger.ScheduledTransaction{r}, day(2024, 1, 1), day(2024, 2, 1))
	wantDates(t, got, "2024-01-01", "2024-01-15", "2024-01-29")
}

func TestProject_EndDateExcludesLaterOccurrences(t *testing.T) {
	end := day(2024, 2, 15)
	r := rule(ledger.FrequencyMonthly, day(2024, 1, 1), &end)
	got := Project([]ledger.ScheduledTransaction{r}, day(2024, 1, 1), day(2024, 4, 1))
	wantDates(t, got, "2024-01-01", "2024-02-01")
}

func TestProject_LeapYearDaily(t *testing.T) {
	r := rule(ledger.FrequencyDaily, day(2010, 1, 1), nil)
	got := Project([]ledger.ScheduledTransaction{r}, day(2024, 1, 1), day(2024, 12, 31))
	if len(got) != 366 {
		t.Fatalf("expected 366 daily instances in 2024, got %d", len(got))
	}
	if got[0].Date != day(2024, 1, 1) || got[365].Date != day(2024, 12, 31) {
		t.Fatalf("unexpected bounds: %s .. %s", got[0].Date, got[365].Date)
	}
}

func TestProject_Deterministic(t *testing.T) {
	r1 := rule(ledger.FrequencyWeekly, day(2024, 1, 3), nil)
	r2 := rule(ledger.FrequencyQuarterly, day(2024, 1, 10), nil)
	rules := []ledger.ScheduledTransaction{r1, r2}
	a := Project(rules, day(2024, 1, 1), day(2024, 6, 30))
	b := Project(rules, day(2024, 1, 1), day(2024, 6, 30))
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Date.Equal(b[i].Date) {
			t.Fatalf("instance %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
	// ascending by date across rules
	for i := 1; i < len(a); i++ {
		if a[i].Date.Before(a[i-1].Date) {
			t.Fatalf("instances not sorted at %d: %s before %s", i, a[i].Date, a[i-1].Date)
		}
	}
}

func TestProject_InstanceShape(t *testing.T) {
	r := rule(ledger.FrequencyMonthly, day(2024, 1, 1), nil)
	got := Project([]ledger.ScheduledTransaction{r}, day(2024, 1, 1), day(2024, 1, 31))
	if len(got) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(got))
	}
	in := got[0]
	if !in.IsProjected || !in.IsScheduledOrigin {
		t.Fatalf("instance flags not set: %+v", in)
	}
	if in.RecurrenceID != r.ID {
		t.Fatalf("recurrence id should point at rule")
	}
	if in.ID != InstanceID(r.ID, day(2024, 1, 1)) {
		t.Fatalf("virtual id not deterministic")
	}
	if in.Account != r.Account || in.Vendor != r.Vendor || in.Category != r.Category {
		t.Fatalf("fields not copied from rule: %+v", in)
	}
}

func TestProject_UnknownFrequencyDefaultsMonthly(t *testing.T) {
	// Unrecognized frequency strings deliberately fall back to a monthly
	// step instead of erroring.
	r := rule(ledger.Frequency("every blue moon"), day(2024, 1, 1), nil)
	got := Project([]ledger.ScheduledTransaction{r}, day(2024, 1, 1), day(2024, 3, 31))
	wantDates(t, got, "2024-01-01", "2024-02-01", "2024-03-01")
}

func TestProject_ZeroAnchorSkipsRule(t *testing.T) {
	bad := rule(ledger.FrequencyDaily, time.Time{}, nil)
	good := rule(ledger.FrequencyMonthly, day(2024, 1, 1), nil)
	got := Project([]ledger.ScheduledTransaction{bad, good}, day(2024, 1, 1), day(2024, 1, 31))
	wantDates(t, got, "2024-01-01")
}

func TestProject_AnchorAfterWindow(t *testing.T) {
	r := rule(ledger.FrequencyMonthly, day(2025, 6, 1), nil)
	got := Project([]ledger.ScheduledTransaction{r}, day(2024, 1, 1), day(2024, 12, 31))
	if len(got) != 0 {
		t.Fatalf("expected no instances before the anchor, got %v", dates(got))
	}
}

func TestResolveStep(t *testing.T) {
	cases := []struct {
		in    ledger.Frequency
		unit  byte
		count int
	}{
		{ledger.FrequencyDaily, 'd', 1},
		{ledger.FrequencyWeekly, 'w', 1},
		{ledger.FrequencyBiWeekly, 'w', 2},
		{ledger.FrequencyFortnightly, 'w', 2},
		{ledger.FrequencyMonthly, 'm', 1},
		{ledger.FrequencyQuarterly, 'm', 3},
		{ledger.FrequencyYearly, 'y', 1},
		{ledger.Frequency("10d"), 'd', 10},
		{ledger.Frequency("3m"), 'm', 3},
		{ledger.Frequency(" Weekly "), 'w', 1},
		{ledger.Frequency("nonsense"), 'm', 1},
		{ledger.Frequency("0d"), 'm', 1},
	}
	for _, c := range cases {
		st := resolveStep(c.in)
		if st.unit != c.unit || st.count != c.count {
			t.Fatalf("resolveStep(%q) = {%c %d}, want {%c %d}", c.in, st.unit, st.count, c.unit, c.count)
		}
	}
}
