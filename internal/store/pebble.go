package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/cockroachdb/pebble"
)

var (
	prefixAccount   = []byte("acc:")
	prefixPosition  = []byte("pos:")
	prefixOrder     = []byte("ord:")
	prefixUserOrder = []byte("uord:")
)

func prefixed(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

// Pebble is a Store backed by a Pebble LSM. Each Update writes into an
// indexed batch so reads inside the transaction see its own writes, and the
// batch is committed with a single synced write.
type Pebble struct {
	db    *pebble.DB
	locks *userLocks

	// commitMu makes the conditional status checks and the batch commit
	// one step with respect to other commits.
	commitMu sync.Mutex
}

var _ Store = (*Pebble)(nil)

// OpenPebble opens or creates a Pebble database in dir.
func OpenPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dir, err)
	}
	return &Pebble{db: db, locks: newUserLocks()}, nil
}

func (s *Pebble) Close() error {
	return s.db.Close()
}

// View reads from a consistent snapshot.
func (s *Pebble) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.db.NewSnapshot()
	defer snap.Close()
	return fn(&pebbleTx{r: snap})
}

func (s *Pebble) Update(ctx context.Context, userID string, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.lock(userID)
	defer unlock()

	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	tx := &pebbleTx{
		r:        batch,
		batch:    batch,
		expected: make(map[string]domain.OrderStatus),
		created:  make(map[string]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Pebble) commit(tx *pebbleTx) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	committed := &pebbleTx{r: s.db}
	for id, want := range tx.expected {
		cur, err := committed.GetOrder(id)
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.ErrStatusConflict
		}
		if err != nil {
			return err
		}
		if cur.Status != want {
			return domain.ErrStatusConflict
		}
	}
	return domain.Unavailable("pebble", tx.batch.Commit(pebble.Sync))
}

type pebbleTx struct {
	r     pebble.Reader
	batch *pebble.Batch // nil for read-only transactions

	expected map[string]domain.OrderStatus
	created  map[string]bool
}

func (t *pebbleTx) get(key []byte) ([]byte, error) {
	v, closer, err := t.r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("pebble", err)
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (t *pebbleTx) set(key, value []byte) error {
	if t.batch == nil {
		return ErrReadOnly
	}
	return domain.Unavailable("pebble", t.batch.Set(key, value, nil))
}

func (t *pebbleTx) del(key []byte) error {
	if t.batch == nil {
		return ErrReadOnly
	}
	return domain.Unavailable("pebble", t.batch.Delete(key, nil))
}

func (t *pebbleTx) scan(prefix []byte, fn func(value []byte) error) error {
	iter, err := t.r.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return domain.Unavailable("pebble", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return domain.Unavailable("pebble", iter.Error())
}

func (t *pebbleTx) GetAccount(userID string) (*domain.Account, error) {
	v, err := t.get(prefixed(prefixAccount, []byte(userID)))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrAccountNotFound
	}
	return decodeAccount(v)
}

func (t *pebbleTx) PutAccount(a *domain.Account) error {
	data, err := encodeAccount(a)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	return t.set(prefixed(prefixAccount, []byte(a.UserID)), data)
}

func (t *pebbleTx) GetPosition(userID, symbol string) (*domain.Position, error) {
	v, err := t.get(prefixed(prefixPosition, positionKey(userID, symbol)))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrPositionNotFound
	}
	return decodePosition(v)
}

func (t *pebbleTx) PutPosition(p *domain.Position) error {
	data, err := encodePosition(p)
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}
	return t.set(prefixed(prefixPosition, positionKey(p.UserID, p.Symbol)), data)
}

func (t *pebbleTx) DeletePosition(userID, symbol string) error {
	return t.del(prefixed(prefixPosition, positionKey(userID, symbol)))
}

func (t *pebbleTx) ListPositions(userID string) ([]*domain.Position, error) {
	out := make([]*domain.Position, 0)
	err := t.scan(prefixed(prefixPosition, userPrefix(userID)), func(v []byte) error {
		p, err := decodePosition(v)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *pebbleTx) GetOrder(id string) (*domain.Order, error) {
	v, err := t.get(prefixed(prefixOrder, []byte(id)))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrOrderNotFound
	}
	return decodeOrder(v)
}

func (t *pebbleTx) putOrder(o *domain.Order) error {
	data, err := encodeOrder(o)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	return t.set(prefixed(prefixOrder, []byte(o.ID)), data)
}

func (t *pebbleTx) CreateOrder(o *domain.Order) error {
	if t.batch == nil {
		return ErrReadOnly
	}
	if _, err := t.GetOrder(o.ID); err == nil {
		return ErrDuplicateOrder
	}
	if err := t.putOrder(o); err != nil {
		return err
	}
	t.created[o.ID] = true
	return t.set(prefixed(prefixUserOrder, userOrderKey(o)), []byte(o.ID))
}

// checkStatus verifies the visible status and records the expectation for
// re-checking at commit.
func (t *pebbleTx) checkStatus(id string, expected domain.OrderStatus) (*domain.Order, error) {
	if t.batch == nil {
		return nil, ErrReadOnly
	}
	cur, err := t.GetOrder(id)
	if err != nil {
		return nil, err
	}
	if cur.Status != expected {
		return nil, domain.ErrStatusConflict
	}
	if _, seen := t.expected[id]; !seen && !t.created[id] {
		t.expected[id] = expected
	}
	return cur, nil
}

func (t *pebbleTx) UpdateOrder(o *domain.Order, expected domain.OrderStatus) error {
	if _, err := t.checkStatus(o.ID, expected); err != nil {
		return err
	}
	return t.putOrder(o)
}

func (t *pebbleTx) DeleteOrder(id string, expected domain.OrderStatus) error {
	cur, err := t.checkStatus(id, expected)
	if err != nil {
		return err
	}
	if err := t.del(prefixed(prefixUserOrder, userOrderKey(cur))); err != nil {
		return err
	}
	return t.del(prefixed(prefixOrder, []byte(id)))
}

func (t *pebbleTx) ListOrders(userID string) ([]*domain.Order, error) {
	var ids []string
	err := t.scan(prefixed(prefixUserOrder, userPrefix(userID)), func(v []byte) error {
		ids = append(ids, string(v))
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Order, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		o, err := t.GetOrder(ids[i])
		if errors.Is(err, domain.ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (t *pebbleTx) ListExecutedOrders(userID string) ([]*domain.Order, error) {
	orders, err := t.ListOrders(userID)
	if err != nil {
		return nil, err
	}
	return executedOnly(orders), nil
}
