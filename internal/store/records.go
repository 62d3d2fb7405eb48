package store

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// Records are the JSON shapes written by the key-value backends. Decimals
// are encoded as strings so amounts round-trip exactly.

type accountRecord struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type positionRecord struct {
	UserID        string          `json:"user_id"`
	Symbol        string          `json:"symbol"`
	Quantity      int64           `json:"quantity"`
	AveragePrice  decimal.Decimal `json:"average_price"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type orderRecord struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ExecutedAt *time.Time      `json:"executed_at,omitempty"`
}

func encodeAccount(a *domain.Account) ([]byte, error) {
	return json.Marshal(accountRecord{
		UserID:    a.UserID,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	})
}

func decodeAccount(data []byte) (*domain.Account, error) {
	var r accountRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &domain.Account{
		UserID:    r.UserID,
		Balance:   r.Balance,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func encodePosition(p *domain.Position) ([]byte, error) {
	return json.Marshal(positionRecord{
		UserID:        p.UserID,
		Symbol:        p.Symbol,
		Quantity:      p.Quantity,
		AveragePrice:  p.AveragePrice,
		TotalInvested: p.TotalInvested,
		UpdatedAt:     p.UpdatedAt,
	})
}

func decodePosition(data []byte) (*domain.Position, error) {
	var r positionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &domain.Position{
		UserID:        r.UserID,
		Symbol:        r.Symbol,
		Quantity:      r.Quantity,
		AveragePrice:  r.AveragePrice,
		TotalInvested: r.TotalInvested,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func encodeOrder(o *domain.Order) ([]byte, error) {
	return json.Marshal(orderRecord{
		ID:         o.ID,
		UserID:     o.UserID,
		Symbol:     o.Symbol,
		Side:       string(o.Side),
		Price:      o.Price,
		Quantity:   o.Quantity,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		ExecutedAt: o.ExecutedAt,
	})
}

func decodeOrder(data []byte) (*domain.Order, error) {
	var r orderRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &domain.Order{
		ID:         r.ID,
		UserID:     r.UserID,
		Symbol:     r.Symbol,
		Side:       domain.OrderSide(r.Side),
		Price:      r.Price,
		Quantity:   r.Quantity,
		Status:     domain.OrderStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		ExecutedAt: r.ExecutedAt,
	}, nil
}

// Key layout shared by the key-value backends. Components are joined with
// a zero byte so a user id can never be a prefix of another user's keys.
//
//	account:     <user>
//	position:    <user> 0x00 <symbol>
//	order:       <id>
//	user order:  <user> 0x00 <created_at unix nanos, big-endian> <id>

const sep = 0x00

func userPrefix(userID string) []byte {
	return append([]byte(userID), sep)
}

func positionKey(userID, symbol string) []byte {
	return append(userPrefix(userID), symbol...)
}

func userOrderKey(o *domain.Order) []byte {
	k := userPrefix(o.UserID)
	k = binary.BigEndian.AppendUint64(k, uint64(o.CreatedAt.UnixNano()))
	return append(k, o.ID...)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
