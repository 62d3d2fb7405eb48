package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidatePrice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"one cent", "0.01", false},
		{"whole amount", "10", false},
		{"sub-cent precision above minimum", "10.12345", false},
		{"zero", "0", true},
		{"below minimum", "0.009", true},
		{"negative", "-5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrice(decimal.RequireFromString(tt.input))
			if tt.wantErr {
				var validationErr *ValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("ValidatePrice(%s) = %v, want *ValidationError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidatePrice(%s) unexpected error: %v", tt.input, err)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"150.25", "150.25", false},
		{"0.01", "0.01", false},
		{"1e2", "100", false},
		{"0", "", true},
		{"abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePrice(tt.input)
		if tt.wantErr {
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("ParsePrice(%q) = %v, want *ValidationError", tt.input, err)
			}
			continue
		}
		if err != nil || !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParsePrice(%q) = %s, %v; want %s", tt.input, got, err, tt.want)
		}
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"default balance", "10000", "10000", false},
		{"cents", "1234.56", "1234.56", false},
		{"zero", "0", "0", false},
		{"negative", "-1", "", true},
		{"garbage", "ten", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseMoney(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMoney(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseMoney(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestNotional(t *testing.T) {
	got := Notional(decimal.RequireFromString("0.1"), 3)
	if !got.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("Notional(0.1, 3) = %s, want 0.3", got)
	}
}
