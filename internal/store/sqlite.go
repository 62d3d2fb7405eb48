package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id    TEXT PRIMARY KEY,
	balance    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS positions (
	user_id        TEXT NOT NULL,
	symbol         TEXT NOT NULL,
	quantity       INTEGER NOT NULL CHECK (quantity >= 0),
	average_price  TEXT NOT NULL,
	total_invested TEXT NOT NULL,
	updated_at     INTEGER NOT NULL,
	PRIMARY KEY (user_id, symbol)
);
CREATE TABLE IF NOT EXISTS orders (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	side        TEXT NOT NULL,
	price       TEXT NOT NULL,
	quantity    INTEGER NOT NULL,
	status      TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	executed_at INTEGER
);
CREATE INDEX IF NOT EXISTS orders_user_created ON orders (user_id, created_at DESC, id DESC);
`

// SQLite is a Store backed by a SQLite database file. The pool holds a
// single connection, so transactions run one at a time.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) View(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, false, fn)
}

func (s *SQLite) Update(ctx context.Context, _ string, fn func(Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *SQLite) run(ctx context.Context, writable bool, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Unavailable("sqlite", err)
	}
	if err := fn(&sqliteTx{ctx: ctx, tx: tx, writable: writable}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if !writable {
		return domain.Unavailable("sqlite", tx.Rollback())
	}
	return domain.Unavailable("sqlite", tx.Commit())
}

type sqliteTx struct {
	ctx      context.Context
	tx       *sql.Tx
	writable bool
}

func (t *sqliteTx) exec(query string, args ...any) (sql.Result, error) {
	if !t.writable {
		return nil, ErrReadOnly
	}
	res, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return nil, domain.Unavailable("sqlite", err)
	}
	return res, nil
}

func nanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func (t *sqliteTx) GetAccount(userID string) (*domain.Account, error) {
	var (
		a                domain.Account
		created, updated int64
	)
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT user_id, balance, created_at, updated_at FROM accounts WHERE user_id = ?`, userID,
	).Scan(&a.UserID, &a.Balance, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, domain.Unavailable("sqlite", err)
	}
	a.CreatedAt, a.UpdatedAt = fromNanos(created), fromNanos(updated)
	return &a, nil
}

func (t *sqliteTx) PutAccount(a *domain.Account) error {
	_, err := t.exec(`
		INSERT INTO accounts (user_id, balance, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		a.UserID, a.Balance.String(), nanos(a.CreatedAt), nanos(a.UpdatedAt))
	return err
}

const positionColumns = `user_id, symbol, quantity, average_price, total_invested, updated_at`

func scanPosition(row interface{ Scan(...any) error }) (*domain.Position, error) {
	var (
		p       domain.Position
		updated int64
	)
	if err := row.Scan(&p.UserID, &p.Symbol, &p.Quantity, &p.AveragePrice, &p.TotalInvested, &updated); err != nil {
		return nil, err
	}
	p.UpdatedAt = fromNanos(updated)
	return &p, nil
}

func (t *sqliteTx) GetPosition(userID, symbol string) (*domain.Position, error) {
	p, err := scanPosition(t.tx.QueryRowContext(t.ctx,
		`SELECT `+positionColumns+` FROM positions WHERE user_id = ? AND symbol = ?`, userID, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPositionNotFound
	}
	if err != nil {
		return nil, domain.Unavailable("sqlite", err)
	}
	return p, nil
}

func (t *sqliteTx) PutPosition(p *domain.Position) error {
	_, err := t.exec(`
		INSERT INTO positions (`+positionColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, symbol) DO UPDATE SET
			quantity = excluded.quantity,
			average_price = excluded.average_price,
			total_invested = excluded.total_invested,
			updated_at = excluded.updated_at`,
		p.UserID, p.Symbol, p.Quantity, p.AveragePrice.String(), p.TotalInvested.String(), nanos(p.UpdatedAt))
	return err
}

func (t *sqliteTx) DeletePosition(userID, symbol string) error {
	_, err := t.exec(`DELETE FROM positions WHERE user_id = ? AND symbol = ?`, userID, symbol)
	return err
}

func (t *sqliteTx) ListPositions(userID string) ([]*domain.Position, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+positionColumns+` FROM positions WHERE user_id = ? ORDER BY symbol`, userID)
	if err != nil {
		return nil, domain.Unavailable("sqlite", err)
	}
	defer rows.Close()

	out := make([]*domain.Position, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, domain.Unavailable("sqlite", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("sqlite", err)
	}
	return out, nil
}

const orderColumns = `id, user_id, symbol, side, price, quantity, status, created_at, executed_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var (
		o            domain.Order
		side, status string
		created      int64
		executed     sql.NullInt64
		price        decimal.Decimal
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.Symbol, &side, &price, &o.Quantity, &status, &created, &executed); err != nil {
		return nil, err
	}
	o.Side = domain.OrderSide(side)
	o.Status = domain.OrderStatus(status)
	o.Price = price
	o.CreatedAt = fromNanos(created)
	if executed.Valid {
		at := fromNanos(executed.Int64)
		o.ExecutedAt = &at
	}
	return &o, nil
}

func executedArg(o *domain.Order) sql.NullInt64 {
	if o.ExecutedAt == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: nanos(*o.ExecutedAt), Valid: true}
}

func (t *sqliteTx) GetOrder(id string) (*domain.Order, error) {
	o, err := scanOrder(t.tx.QueryRowContext(t.ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, domain.Unavailable("sqlite", err)
	}
	return o, nil
}

func (t *sqliteTx) CreateOrder(o *domain.Order) error {
	if _, err := t.GetOrder(o.ID); err == nil {
		return ErrDuplicateOrder
	}
	_, err := t.exec(`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Symbol, string(o.Side), o.Price.String(), o.Quantity, string(o.Status),
		nanos(o.CreatedAt), executedArg(o))
	return err
}

// conditional maps a zero-row conditional write to not-found or a status
// conflict.
func (t *sqliteTx) conditional(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Unavailable("sqlite", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := t.GetOrder(id); err != nil {
		return err
	}
	return domain.ErrStatusConflict
}

func (t *sqliteTx) UpdateOrder(o *domain.Order, expected domain.OrderStatus) error {
	res, err := t.exec(`
		UPDATE orders SET symbol = ?, side = ?, price = ?, quantity = ?, status = ?, executed_at = ?
		WHERE id = ? AND status = ?`,
		o.Symbol, string(o.Side), o.Price.String(), o.Quantity, string(o.Status), executedArg(o),
		o.ID, string(expected))
	if err != nil {
		return err
	}
	return t.conditional(res, o.ID)
}

func (t *sqliteTx) DeleteOrder(id string, expected domain.OrderStatus) error {
	res, err := t.exec(`DELETE FROM orders WHERE id = ? AND status = ?`, id, string(expected))
	if err != nil {
		return err
	}
	return t.conditional(res, id)
}

func (t *sqliteTx) queryOrders(query string, args ...any) ([]*domain.Order, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, domain.Unavailable("sqlite", err)
	}
	defer rows.Close()

	out := make([]*domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Unavailable("sqlite", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("sqlite", err)
	}
	return out, nil
}

func (t *sqliteTx) ListOrders(userID string) ([]*domain.Order, error) {
	return t.queryOrders(
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

func (t *sqliteTx) ListExecutedOrders(userID string) ([]*domain.Order, error) {
	return t.queryOrders(
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? AND status = ? AND executed_at IS NOT NULL
		 ORDER BY executed_at DESC, id DESC`, userID, string(domain.OrderStatusExecuted))
}
