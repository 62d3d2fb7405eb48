package store

import (
	"context"
	"sync"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/google/btree"
)

// orderKey positions an order in its owner's index: creation time, then id.
type orderKey struct {
	createdAt int64
	id        string
}

func orderKeyLess(a, b orderKey) bool {
	if a.createdAt != b.createdAt {
		return a.createdAt < b.createdAt
	}
	return a.id < b.id
}

func keyOf(o *domain.Order) orderKey {
	return orderKey{createdAt: o.CreatedAt.UnixNano(), id: o.ID}
}

// Memory is a thread-safe in-memory Store.
// Primary indexes: user_id → account, user_id → symbol → position,
// order_id → order. Secondary index: user_id → B-tree of orders by
// creation time.
type Memory struct {
	mu        sync.RWMutex
	accounts  map[string]*domain.Account
	positions map[string]map[string]*domain.Position
	orders    map[string]*domain.Order
	byUser    map[string]*btree.BTreeG[orderKey]

	locks *userLocks
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[string]*domain.Account),
		positions: make(map[string]map[string]*domain.Position),
		orders:    make(map[string]*domain.Order),
		byUser:    make(map[string]*btree.BTreeG[orderKey]),
		locks:     newUserLocks(),
	}
}

// View runs fn against the committed state.
func (s *Memory) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{s: s})
}

// Update stages every write made by fn and applies them in one step once fn
// returns nil. Conditional order writes are re-checked at commit.
func (s *Memory) Update(ctx context.Context, userID string, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	tx := &memTx{
		s:         s,
		writable:  true,
		accounts:  make(map[string]*domain.Account),
		positions: make(map[positionRef]*domain.Position),
		orders:    make(map[string]*domain.Order),
		expected:  make(map[string]domain.OrderStatus),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx)
}

// Close is a no-op.
func (s *Memory) Close() error { return nil }

func (s *Memory) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, want := range tx.expected {
		cur, ok := s.orders[id]
		if !ok || cur.Status != want {
			return domain.ErrStatusConflict
		}
	}

	for id, a := range tx.accounts {
		s.accounts[id] = a
	}

	for ref, p := range tx.positions {
		if p == nil {
			if byUser := s.positions[ref.userID]; byUser != nil {
				delete(byUser, ref.symbol)
				if len(byUser) == 0 {
					delete(s.positions, ref.userID)
				}
			}
			continue
		}
		if s.positions[ref.userID] == nil {
			s.positions[ref.userID] = make(map[string]*domain.Position)
		}
		s.positions[ref.userID][ref.symbol] = p
	}

	for id, o := range tx.orders {
		prev, existed := s.orders[id]
		if existed {
			s.byUser[prev.UserID].Delete(keyOf(prev))
		}
		if o == nil {
			delete(s.orders, id)
			continue
		}
		s.orders[id] = o
		tree := s.byUser[o.UserID]
		if tree == nil {
			tree = btree.NewG(32, orderKeyLess)
			s.byUser[o.UserID] = tree
		}
		tree.ReplaceOrInsert(keyOf(o))
	}

	return nil
}

type positionRef struct {
	userID string
	symbol string
}

// memTx reads through its staged writes to the committed maps. A nil
// staged position or order marks a delete.
type memTx struct {
	s        *Memory
	writable bool

	accounts  map[string]*domain.Account
	positions map[positionRef]*domain.Position
	orders    map[string]*domain.Order
	expected  map[string]domain.OrderStatus
}

func (tx *memTx) GetAccount(userID string) (*domain.Account, error) {
	if a, ok := tx.accounts[userID]; ok {
		return a.Clone(), nil
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	a, ok := tx.s.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (tx *memTx) PutAccount(a *domain.Account) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.accounts[a.UserID] = a.Clone()
	return nil
}

func (tx *memTx) GetPosition(userID, symbol string) (*domain.Position, error) {
	if p, ok := tx.positions[positionRef{userID, symbol}]; ok {
		if p == nil {
			return nil, domain.ErrPositionNotFound
		}
		return p.Clone(), nil
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	p, ok := tx.s.positions[userID][symbol]
	if !ok {
		return nil, domain.ErrPositionNotFound
	}
	return p.Clone(), nil
}

func (tx *memTx) PutPosition(p *domain.Position) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.positions[positionRef{p.UserID, p.Symbol}] = p.Clone()
	return nil
}

func (tx *memTx) DeletePosition(userID, symbol string) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.positions[positionRef{userID, symbol}] = nil
	return nil
}

func (tx *memTx) ListPositions(userID string) ([]*domain.Position, error) {
	tx.s.mu.RLock()
	merged := make(map[string]*domain.Position, len(tx.s.positions[userID]))
	for sym, p := range tx.s.positions[userID] {
		merged[sym] = p
	}
	tx.s.mu.RUnlock()

	for ref, p := range tx.positions {
		if ref.userID != userID {
			continue
		}
		if p == nil {
			delete(merged, ref.symbol)
		} else {
			merged[ref.symbol] = p
		}
	}

	out := make([]*domain.Position, 0, len(merged))
	for _, p := range merged {
		out = append(out, p.Clone())
	}
	sortPositions(out)
	return out, nil
}

func (tx *memTx) GetOrder(id string) (*domain.Order, error) {
	if o, ok := tx.orders[id]; ok {
		if o == nil {
			return nil, domain.ErrOrderNotFound
		}
		return o.Clone(), nil
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	o, ok := tx.s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (tx *memTx) CreateOrder(o *domain.Order) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if _, err := tx.GetOrder(o.ID); err == nil {
		return ErrDuplicateOrder
	}
	tx.orders[o.ID] = o.Clone()
	return nil
}

func (tx *memTx) UpdateOrder(o *domain.Order, expected domain.OrderStatus) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if err := tx.checkStatus(o.ID, expected); err != nil {
		return err
	}
	tx.orders[o.ID] = o.Clone()
	return nil
}

func (tx *memTx) DeleteOrder(id string, expected domain.OrderStatus) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if err := tx.checkStatus(id, expected); err != nil {
		return err
	}
	tx.orders[id] = nil
	return nil
}

// checkStatus verifies the visible status and, for orders not staged in
// this transaction, records the expectation for commit.
func (tx *memTx) checkStatus(id string, expected domain.OrderStatus) error {
	cur, err := tx.GetOrder(id)
	if err != nil {
		return err
	}
	if cur.Status != expected {
		return domain.ErrStatusConflict
	}
	if _, staged := tx.orders[id]; !staged {
		if _, seen := tx.expected[id]; !seen {
			tx.expected[id] = expected
		}
	}
	return nil
}

func (tx *memTx) ListOrders(userID string) ([]*domain.Order, error) {
	tx.s.mu.RLock()
	out := make([]*domain.Order, 0)
	if tree := tx.s.byUser[userID]; tree != nil {
		tree.Descend(func(k orderKey) bool {
			if _, staged := tx.orders[k.id]; !staged {
				out = append(out, tx.s.orders[k.id].Clone())
			}
			return true
		})
	}
	tx.s.mu.RUnlock()

	extra := false
	for _, o := range tx.orders {
		if o != nil && o.UserID == userID {
			out = append(out, o.Clone())
			extra = true
		}
	}
	if extra {
		sortOrdersByCreated(out)
	}
	return out, nil
}

func (tx *memTx) ListExecutedOrders(userID string) ([]*domain.Order, error) {
	orders, err := tx.ListOrders(userID)
	if err != nil {
		return nil, err
	}
	return executedOnly(orders), nil
}
