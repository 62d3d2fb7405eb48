package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
)

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"user-1", true},
		{"auth0_5f1c2b", true},
		{"A", true},
		{"", false},
		{"has space", false},
		{"email@example.com", false},
		{strings.Repeat("a", 65), false},
		{strings.Repeat("a", 64), true},
	}
	for _, tt := range tests {
		err := ValidateUserID(tt.id)
		if tt.valid && err != nil {
			t.Errorf("ValidateUserID(%q) = %v, want nil", tt.id, err)
		}
		var ve *domain.ValidationError
		if !tt.valid && !errors.As(err, &ve) {
			t.Errorf("ValidateUserID(%q) = %v, want ValidationError", tt.id, err)
		}
	}
}

func TestAccountService_OpenAndGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.accounts.Get(ctx, "user-1"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("Get before open: got %v, want ErrAccountNotFound", err)
	}

	acct, err := env.accounts.Open(ctx, "user-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !acct.Balance.Equal(dec("10000")) {
		t.Errorf("opening balance = %s, want 10000", acct.Balance)
	}

	if _, err := env.accounts.Open(ctx, "user-1"); !errors.Is(err, domain.ErrAccountExists) {
		t.Errorf("second Open: got %v, want ErrAccountExists", err)
	}

	env.fill(t, "user-1", "PETR4", domain.OrderSideBuy, "10", 100)
	acct, err = env.accounts.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !acct.Balance.Equal(dec("9000")) {
		t.Errorf("balance = %s, want 9000", acct.Balance)
	}
}

func TestAccountService_OpenRejectsBadID(t *testing.T) {
	env := newTestEnv(t)
	var ve *domain.ValidationError
	if _, err := env.accounts.Open(context.Background(), "bad id"); !errors.As(err, &ve) {
		t.Errorf("got %v, want ValidationError", err)
	}
}
