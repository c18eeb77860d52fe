package ingestion

import "testing"

func TestExtractCurrencySymbol(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"$12.99", "$"},
		{"US$ 12.99", "US$"},
		{"12,99 €", "€"},
		{"£5.00", "£"},
		{"1234.56", ""},
	}

	for _, tc := range cases {
		if got := ExtractCurrencySymbol(tc.raw); got != tc.want {
			t.Fatalf("ExtractCurrencySymbol(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizePriceNotation(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"$12.99", "12.99"},
		{"1.234,56", "1234.56"},
		{"12,99", "12.99"},
		{"1,234.56", "1234.56"},
		{"1234", "1234"},
		{"€ 9,00", "9.00"},
	}

	for _, tc := range cases {
		if got := NormalizePriceNotation(tc.raw); got != tc.want {
			t.Fatalf("NormalizePriceNotation(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParsePrice(t *testing.T) {
	price, err := ParsePrice("1.234,56 €")
	if err != nil {
		t.Fatalf("ParsePrice: %v", err)
	}
	if price.String() != "1234.56" {
		t.Fatalf("ParsePrice = %s, want 1234.56", price)
	}

	if _, err := ParsePrice("not a price"); err == nil {
		t.Fatal("expected parse error")
	}
}
