package ocr

import (
	"testing"
	"time"

	"kharcha/internal/core"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name string
		text string
		want float64
		none bool
	}{
		{
			name: "paid label then amount line",
			text: "Order Receipt\nPaid\n₹1,250.00\nThank you",
			want: 1250.00,
		},
		{
			name: "total with amount on next line",
			text: "Total\n₹999",
			want: 999,
		},
		{
			name: "total with amount on same line",
			text: "Grand Total ₹450.50",
			want: 450.50,
		},
		{
			name: "paid regex across lines",
			text: "Paid\n₹ 2,000",
			want: 2000,
		},
		{
			name: "currency scan fallback",
			text: "Some Shop\nitems 3\n₹120",
			want: 120,
		},
		{
			name: "rupee symbol with Rs prefix",
			text: "Paid\nRs. 350",
			want: 350,
		},
		{
			name: "no markers at all",
			text: "Corner Shop\nthanks for visiting",
			none: true,
		},
		{
			name: "zero amount rejected",
			text: "Total\n₹0",
			none: true,
		},
		{
			name: "empty input",
			text: "",
			none: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := Parse(tc.text)
			if tc.none {
				if obs.Amount != nil {
					t.Fatalf("expected nil amount, got %v", *obs.Amount)
				}
				return
			}
			if obs.Amount == nil {
				t.Fatal("expected amount, got nil")
			}
			if *obs.Amount != tc.want {
				t.Fatalf("got %v want %v", *obs.Amount, tc.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		name string
		text string
		want time.Time
		none bool
	}{
		{
			name: "labelled long month",
			text: "Payment Date\nFebruary 7, 2026",
			want: time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "slash format on its own line",
			text: "Big Bazaar\n07/02/2026\n₹500",
			want: time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "dash format two digit year",
			text: "07-02-26",
			want: time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "iso format",
			text: "2026-02-07",
			want: time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "long form with time of day",
			text: "Paid ₹80 on February 7, 2026 at 6:32 PM via UPI",
			want: time.Date(2026, 2, 7, 18, 32, 0, 0, time.UTC),
		},
		{
			name: "short month with comma",
			text: "Date\nFeb 7, 2026",
			want: time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "no date anywhere",
			text: "Cafe\nPaid\n₹100",
			none: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := Parse(tc.text)
			if tc.none {
				if obs.Date != nil {
					t.Fatalf("expected nil date, got %v", *obs.Date)
				}
				return
			}
			if obs.Date == nil {
				t.Fatal("expected date, got nil")
			}
			if !obs.Date.Equal(tc.want) {
				t.Fatalf("got %v want %v", *obs.Date, tc.want)
			}
		})
	}
}

func TestParseMerchant(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
		none bool
	}{
		{
			name: "skips header and amount lines",
			text: "Order Receipt\nStarbucks Coffee\n₹250\nPaid",
			want: "Starbucks Coffee",
		},
		{
			name: "skips mostly numeric lines",
			text: "123456789\nBlue Tokai\n₹300",
			want: "Blue Tokai",
		},
		{
			name: "falls back to first non-empty line",
			text: "Tax Invoice\n₹42",
			want: "Tax Invoice",
		},
		{
			name: "empty input has no merchant",
			text: "",
			none: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := Parse(tc.text)
			if tc.none {
				if obs.Description != nil {
					t.Fatalf("expected nil merchant, got %q", *obs.Description)
				}
				return
			}
			if obs.Description == nil {
				t.Fatal("expected merchant, got nil")
			}
			if *obs.Description != tc.want {
				t.Fatalf("got %q want %q", *obs.Description, tc.want)
			}
		})
	}
}

func TestParseAlwaysTagsOCR(t *testing.T) {
	if got := Parse("anything").Source; got != core.SourceOCR {
		t.Fatalf("got source %q", got)
	}
	if got := Parse("").Source; got != core.SourceOCR {
		t.Fatalf("got source %q for empty input", got)
	}
}

func TestParseFullReceipt(t *testing.T) {
	text := "Order Receipt\nChai Point\nPayment Date\n07/02/2026\nPaid\n₹180.00\nThank you"
	obs := Parse(text)

	if obs.Amount == nil || *obs.Amount != 180 {
		t.Fatalf("amount: %v", obs.Amount)
	}
	if obs.Date == nil || !obs.Date.Equal(time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date: %v", obs.Date)
	}
	if obs.Description == nil || *obs.Description != "Chai Point" {
		t.Fatalf("merchant: %v", obs.Description)
	}
}
