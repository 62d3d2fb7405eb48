package domain

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"PETR4", "PETR4", false},
		{"petr4", "PETR4", false},
		{"  vale3 ", "VALE3", false},
		{"brk.b", "BRK.B", false},
		{"", "", true},
		{"   ", "", true},
		{"AB-C", "", true},
		{"ABCDEFGHIJKLM", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeSymbol(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NormalizeSymbol(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeSymbol(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
