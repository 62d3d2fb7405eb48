package store

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketAccounts   = "accounts"
	bucketPositions  = "positions"
	bucketOrders     = "orders"
	bucketUserOrders = "user_orders"
)

// Bolt is a Store backed by a single bbolt file. bbolt allows one writer at
// a time, so Update calls are serialized across all users.
type Bolt struct {
	db *bolt.DB
}

var _ Store = (*Bolt)(nil)

// OpenBolt opens or creates the database file at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	s := &Bolt{db: db}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Bolt) ensureBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketAccounts, bucketPositions, bucketOrders, bucketUserOrders} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Bolt) Close() error {
	return s.db.Close()
}

func (s *Bolt) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var fnErr error
	err := s.db.View(func(btx *bolt.Tx) error {
		fnErr = fn(&boltTx{tx: btx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return domain.Unavailable("bolt", err)
}

func (s *Bolt) Update(ctx context.Context, _ string, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var fnErr error
	err := s.db.Update(func(btx *bolt.Tx) error {
		fnErr = fn(&boltTx{tx: btx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return domain.Unavailable("bolt", err)
}

type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) bucket(name string) *bolt.Bucket {
	return t.tx.Bucket([]byte(name))
}

func (t *boltTx) put(bucket string, key, value []byte) error {
	if !t.tx.Writable() {
		return ErrReadOnly
	}
	return domain.Unavailable("bolt", t.bucket(bucket).Put(key, value))
}

func (t *boltTx) del(bucket string, key []byte) error {
	if !t.tx.Writable() {
		return ErrReadOnly
	}
	return domain.Unavailable("bolt", t.bucket(bucket).Delete(key))
}

func (t *boltTx) GetAccount(userID string) (*domain.Account, error) {
	v := t.bucket(bucketAccounts).Get([]byte(userID))
	if v == nil {
		return nil, domain.ErrAccountNotFound
	}
	return decodeAccount(v)
}

func (t *boltTx) PutAccount(a *domain.Account) error {
	data, err := encodeAccount(a)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	return t.put(bucketAccounts, []byte(a.UserID), data)
}

func (t *boltTx) GetPosition(userID, symbol string) (*domain.Position, error) {
	v := t.bucket(bucketPositions).Get(positionKey(userID, symbol))
	if v == nil {
		return nil, domain.ErrPositionNotFound
	}
	return decodePosition(v)
}

func (t *boltTx) PutPosition(p *domain.Position) error {
	data, err := encodePosition(p)
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}
	return t.put(bucketPositions, positionKey(p.UserID, p.Symbol), data)
}

func (t *boltTx) DeletePosition(userID, symbol string) error {
	return t.del(bucketPositions, positionKey(userID, symbol))
}

func (t *boltTx) ListPositions(userID string) ([]*domain.Position, error) {
	prefix := userPrefix(userID)
	out := make([]*domain.Position, 0)
	c := t.bucket(bucketPositions).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		p, err := decodePosition(v)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *boltTx) GetOrder(id string) (*domain.Order, error) {
	v := t.bucket(bucketOrders).Get([]byte(id))
	if v == nil {
		return nil, domain.ErrOrderNotFound
	}
	return decodeOrder(v)
}

func (t *boltTx) CreateOrder(o *domain.Order) error {
	if t.bucket(bucketOrders).Get([]byte(o.ID)) != nil {
		return ErrDuplicateOrder
	}
	if err := t.putOrder(o); err != nil {
		return err
	}
	return t.put(bucketUserOrders, userOrderKey(o), []byte(o.ID))
}

func (t *boltTx) putOrder(o *domain.Order) error {
	data, err := encodeOrder(o)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	return t.put(bucketOrders, []byte(o.ID), data)
}

func (t *boltTx) UpdateOrder(o *domain.Order, expected domain.OrderStatus) error {
	cur, err := t.GetOrder(o.ID)
	if err != nil {
		return err
	}
	if cur.Status != expected {
		return domain.ErrStatusConflict
	}
	return t.putOrder(o)
}

func (t *boltTx) DeleteOrder(id string, expected domain.OrderStatus) error {
	cur, err := t.GetOrder(id)
	if err != nil {
		return err
	}
	if cur.Status != expected {
		return domain.ErrStatusConflict
	}
	if err := t.del(bucketUserOrders, userOrderKey(cur)); err != nil {
		return err
	}
	return t.del(bucketOrders, []byte(id))
}

func (t *boltTx) ListOrders(userID string) ([]*domain.Order, error) {
	prefix := userPrefix(userID)
	orders := t.bucket(bucketOrders)
	out := make([]*domain.Order, 0)
	c := t.bucket(bucketUserOrders).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		data := orders.Get(v)
		if data == nil {
			continue
		}
		o, err := decodeOrder(data)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	// Keys ascend by creation time; the listing is newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (t *boltTx) ListExecutedOrders(userID string) ([]*domain.Order, error) {
	orders, err := t.ListOrders(userID)
	if err != nil {
		return nil, err
	}
	return executedOnly(orders), nil
}
