package service

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/engine"
)

var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateUserID checks the shape of an identifier forwarded by the
// identity provider.
func ValidateUserID(userID string) error {
	if !userIDRegex.MatchString(userID) {
		return &domain.ValidationError{Message: "user id must match ^[a-zA-Z0-9_-]{1,64}$"}
	}
	return nil
}

// AccountService opens accounts and reports balances.
type AccountService struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(eng *engine.Engine, logger *slog.Logger) *AccountService {
	return &AccountService{engine: eng, logger: logger}
}

// Open creates the user's account with the configured starting balance.
func (s *AccountService) Open(ctx context.Context, userID string) (*domain.Account, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	acct, err := s.engine.OpenAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("account opened",
		slog.String("user_id", userID),
		slog.String("balance", acct.Balance.String()),
	)
	return acct, nil
}

// Get returns the user's account.
func (s *AccountService) Get(ctx context.Context, userID string) (*domain.Account, error) {
	return s.engine.Account(ctx, userID)
}
