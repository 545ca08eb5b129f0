package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdolezal/isdocsync/internal/invoice"
	"github.com/mdolezal/isdocsync/internal/staging/mirror"
)

// The stub driver executes nothing but enforces placeholder arity exactly
// like a live driver: NumInput reports the statement's real placeholder
// count, so database/sql rejects any mismatch with the bound arguments.

var (
	stubsMu sync.Mutex
	stubs   = map[string]*stubConn{}
)

type stubDriver struct{}

func (stubDriver) Open(name string) (driver.Conn, error) {
	stubsMu.Lock()
	defer stubsMu.Unlock()

	return stubs[name], nil
}

func init() { sql.Register("mirrorstub", stubDriver{}) }

type stubCall struct {
	query string
	args  int
}

type stubConn struct {
	mu    sync.Mutex
	calls []stubCall
	now   time.Time
}

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	return &stubStmt{conn: c, query: query}, nil
}

func (c *stubConn) Close() error              { return nil }
func (c *stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

func (c *stubConn) record(query string, args int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, stubCall{query: query, args: args})
}

func (c *stubConn) find(t *testing.T, fragment string) stubCall {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, call := range c.calls {
		if strings.Contains(call.query, fragment) {
			return call
		}
	}

	t.Fatalf("no executed statement contains %q", fragment)

	return stubCall{}
}

func (c *stubConn) count(fragment string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int

	for _, call := range c.calls {
		if strings.Contains(call.query, fragment) {
			n++
		}
	}

	return n
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

var placeholderPattern = regexp.MustCompile(`\$\d+`)

func placeholderCount(query string) int {
	seen := map[string]struct{}{}
	for _, p := range placeholderPattern.FindAllString(query, -1) {
		seen[p] = struct{}{}
	}

	return len(seen)
}

type stubStmt struct {
	conn  *stubConn
	query string
}

func (s *stubStmt) Close() error  { return nil }
func (s *stubStmt) NumInput() int { return placeholderCount(s.query) }

func (s *stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.conn.record(s.query, len(args))

	return driver.RowsAffected(1), nil
}

func (s *stubStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.conn.record(s.query, len(args))

	if strings.Contains(s.query, "RETURNING id, first_seen_at, last_synced_at") {
		return &stubRows{
			cols: []string{"id", "first_seen_at", "last_synced_at"},
			vals: [][]driver.Value{{uuid.NewString(), s.conn.now, s.conn.now}},
		}, nil
	}

	return &stubRows{}, nil
}

type stubRows struct {
	cols []string
	vals [][]driver.Value
	next int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.vals) {
		return io.EOF
	}

	copy(dest, r.vals[r.next])
	r.next++

	return nil
}

func openStub(t *testing.T) (*Store, *stubConn) {
	t.Helper()

	conn := &stubConn{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	stubsMu.Lock()
	stubs[t.Name()] = conn
	stubsMu.Unlock()

	db, err := sql.Open("mirrorstub", t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db), conn
}

func record() *mirror.Record {
	issued := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 2, 11, 8, 30, 0, 0, time.UTC)

	rec := &mirror.Record{
		RemoteID: 4242,
		Token:    "tok-4242",

		Status:          "open",
		Open:            true,
		RemainingAmount: decimal.RequireFromString("2420"),

		Client: invoice.Party{Name: "Client s.r.o.", VatNo: "CZ22334455"},
		Owner:  invoice.Party{Name: "Owner s.r.o.", VatNo: "CZ12345678"},

		Tags:            json.RawMessage(`["q1"]`),
		RemoteUpdatedAt: &updated,

		Lines: []mirror.Line{
			{LineOrder: 0, Name: "Work", Quantity: decimal.RequireFromString("1")},
			{LineOrder: 1, Name: "Travel", Quantity: decimal.RequireFromString("2")},
		},
		Payments: []mirror.Payment{
			{PaidOn: issued, Currency: "CZK", Amount: decimal.RequireFromString("1000")},
		},
		Attachments: []mirror.Attachment{
			{Filename: "invoice.pdf", ContentType: "application/pdf"},
		},
	}

	rec.Number = "2026-0042"
	rec.DocumentType = "invoice"
	rec.IssuedOn = &issued
	rec.Total = decimal.NewNullDecimal(decimal.RequireFromString("2420"))
	rec.Currency = "CZK"

	return rec
}

func TestStore_Upsert_ArgumentsMatchPlaceholders(t *testing.T) {
	store, conn := openStub(t)

	rec, err := store.Upsert(context.Background(), uuid.New(), record())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, rec.ID)

	insert := conn.find(t, "INSERT INTO mirror_records")
	placeholders := placeholderCount(insert.query)

	assert.Equal(t, placeholders, insert.args)

	open := strings.Index(insert.query, "(")
	closing := strings.Index(insert.query, ") VALUES")
	require.True(t, open >= 0 && closing > open)

	columns := strings.Split(insert.query[open+1:closing], ",")

	// first_seen_at and last_synced_at are filled with NOW(), everything
	// else binds a parameter.
	assert.Len(t, columns, placeholders+2)
}

func TestStore_Upsert_UpdatePreservesFirstSeenAndImportState(t *testing.T) {
	store, conn := openStub(t)

	_, err := store.Upsert(context.Background(), uuid.New(), record())
	require.NoError(t, err)

	insert := conn.find(t, "INSERT INTO mirror_records")

	_, set, ok := strings.Cut(insert.query, "DO UPDATE SET")
	require.True(t, ok)
	set, _, _ = strings.Cut(set, "RETURNING")

	assert.NotContains(t, set, "first_seen_at")
	assert.NotContains(t, set, "is_imported")
	assert.NotContains(t, set, "imported_invoice_id")
	assert.NotContains(t, set, "imported_to_invoice_at")

	assert.Contains(t, set, "last_synced_at = NOW()")
	assert.Contains(t, set, "remote_updated_at = EXCLUDED.remote_updated_at")
}

func TestStore_Upsert_ReplacesChildren(t *testing.T) {
	store, conn := openStub(t)

	rec := record()

	_, err := store.Upsert(context.Background(), uuid.New(), rec)
	require.NoError(t, err)

	for _, table := range []string{"mirror_lines", "mirror_payments", "mirror_attachments"} {
		conn.find(t, "DELETE FROM "+table)
	}

	assert.Equal(t, len(rec.Lines), conn.count("INSERT INTO mirror_lines"))
	assert.Equal(t, len(rec.Payments), conn.count("INSERT INTO mirror_payments"))
	assert.Equal(t, len(rec.Attachments), conn.count("INSERT INTO mirror_attachments"))
}
