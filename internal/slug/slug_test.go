package slug

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Household Ledger", "household_ledger"},
		{"My--Budget!!", "my_budget"},
		{"  spaced  out  ", "spaced_out"},
		{"ALLCAPS", "allcaps"},
		{"", ""},
		{"This name is much longer than allowed", "this_name_is_much_longer"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Fatalf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsSlug(t *testing.T) {
	for _, ok := range []string{"demo", "a_1", "x"} {
		if !IsSlug(ok) {
			t.Fatalf("expected %q to be a slug", ok)
		}
	}
	for _, bad := range []string{"", "Has Caps", "trailing-dash", "waytoolongwaytoolongwaytoo"} {
		if IsSlug(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
