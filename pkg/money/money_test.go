package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"43", "43"},
		{"$43", "43"},
		{"43€", "43"},
		{"43.50€", "43.5"},
		{"  12.30 ", "12.3"},
		{"$9.99€", "9.99"},
		{"free", "0"},
		{"", "0"},
		{"€", "0"},
		{"12,50", "0"},
	}

	for _, tc := range cases {
		got := Parse(tc.in)
		if want := decimal.RequireFromString(tc.want); !got.Equal(want) {
			t.Fatalf("Parse(%q) = %s, want %s", tc.in, got, want)
		}
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	if got := Format(decimal.NewFromInt(43)); got != "43.00€" {
		t.Fatalf("Format(43) = %q", got)
	}
	if got := Format(decimal.RequireFromString("5.5")); got != "5.50€" {
		t.Fatalf("Format(5.5) = %q", got)
	}
	if got := Format(decimal.Zero); got != "0.00€" {
		t.Fatalf("Format(0) = %q", got)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"0", "0.01", "5.5", "43", "15.50", "1999.99"} {
		amount := decimal.RequireFromString(raw)
		if got := Parse(Format(amount)); !got.Equal(amount) {
			t.Fatalf("round trip of %s produced %s", amount, got)
		}
	}
}
