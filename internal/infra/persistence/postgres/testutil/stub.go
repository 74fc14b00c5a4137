// Package testutil provides a table-keeping stub database for postgres store
// tests. It understands the small SQL subset the relational backend emits and
// mirrors the schema's primary keys and ON DELETE clauses.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgconn"
)

// Row is a stored row keyed by lower-case column name.
type Row = map[string]any

// StubConn records statements and keeps table contents for the postgres store during tests.
type StubConn struct {
	Execs      []string
	Tables     map[string][]Row
	FailExec   bool
	FailPing   bool
	FailBegin  bool
	FailCommit bool
	RowsErr    error
	// FailTables makes any statement touching the named table fail.
	FailTables map[string]error
}

var primaryKeys = map[string][]string{
	"students":      {"id"},
	"instructors":   {"id"},
	"courses":       {"id"},
	"registrations": {"student_id", "course_id"},
}

var stubSeq atomic.Int64

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]Row)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx. Rollback restores the tables as they
// were when the transaction began.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c, saved: cloneTables(c.Tables)}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	if c.Tables == nil {
		c.Tables = make(map[string][]Row)
	}
	verb := strings.ToUpper(strings.Fields(query)[0])
	switch verb {
	case "INSERT":
		table, cols, err := parseInsert(query)
		if err != nil {
			return nil, err
		}
		if err := c.failFor(table); err != nil {
			return nil, err
		}
		if len(cols) != len(args) {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		for _, existing := range c.Tables[table] {
			if samePrimaryKey(table, existing, row) {
				return nil, &pgconn.PgError{Code: "23505", ConstraintName: table + "_pkey", Message: "duplicate key value"}
			}
		}
		c.Tables[table] = append(c.Tables[table], row)
		return driver.RowsAffected(1), nil
	case "UPDATE":
		table, sets, where, err := parseUpdate(query)
		if err != nil {
			return nil, err
		}
		if err := c.failFor(table); err != nil {
			return nil, err
		}
		if len(sets)+len(where) != len(args) {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		var n int64
		for _, row := range c.Tables[table] {
			if !matches(row, where, args[len(sets):]) {
				continue
			}
			for i, col := range sets {
				row[col] = args[i].Value
			}
			n++
		}
		return driver.RowsAffected(n), nil
	case "DELETE":
		table, where, err := parseDelete(query)
		if err != nil {
			return nil, err
		}
		if err := c.failFor(table); err != nil {
			return nil, err
		}
		if len(where) != len(args) {
			return nil, fmt.Errorf("missing args for delete %s", table)
		}
		var kept []Row
		var removed []Row
		for _, row := range c.Tables[table] {
			if matches(row, where, args) {
				removed = append(removed, row)
				continue
			}
			kept = append(kept, row)
		}
		c.Tables[table] = kept
		for _, row := range removed {
			c.onDelete(table, row["id"])
		}
		return driver.RowsAffected(int64(len(removed))), nil
	}
	return driver.RowsAffected(0), nil
}

func (c *StubConn) failFor(table string) error {
	if c.FailTables == nil {
		return nil
	}
	return c.FailTables[table]
}

// onDelete mirrors the schema: registrations cascade, course instructors set null.
func (c *StubConn) onDelete(table string, id any) {
	filter := func(target, col string) {
		var kept []Row
		for _, row := range c.Tables[target] {
			if row[col] == id {
				continue
			}
			kept = append(kept, row)
		}
		c.Tables[target] = kept
	}
	switch table {
	case "students":
		filter("registrations", "student_id")
	case "courses":
		filter("registrations", "course_id")
	case "instructors":
		for _, row := range c.Tables["courses"] {
			if row["instructor_id"] == id {
				row["instructor_id"] = nil
			}
		}
	}
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if c.Tables == nil {
		c.Tables = make(map[string][]Row)
	}
	table, cols, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	if err := c.failFor(table); err != nil {
		return nil, err
	}
	tableRows := c.Tables[table]
	values := make([][]driver.Value, 0, len(tableRows))
	for _, row := range tableRows {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{
		cols: cols,
		rows: values,
		err:  c.RowsErr,
	}, nil
}

type stubTx struct {
	conn  *StubConn
	saved map[string][]Row
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		t.conn.Tables = t.saved
		return fmt.Errorf("commit fail")
	}
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.Tables = t.saved
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func cloneTables(in map[string][]Row) map[string][]Row {
	out := make(map[string][]Row, len(in))
	for table, rows := range in {
		cp := make([]Row, 0, len(rows))
		for _, row := range rows {
			r := make(Row, len(row))
			for k, v := range row {
				r[k] = v
			}
			cp = append(cp, r)
		}
		out[table] = cp
	}
	return out
}

func samePrimaryKey(table string, a, b Row) bool {
	cols, ok := primaryKeys[table]
	if !ok {
		return false
	}
	for _, col := range cols {
		if a[col] != b[col] {
			return false
		}
	}
	return true
}

func matches(row Row, cols []string, args []driver.NamedValue) bool {
	for i, col := range cols {
		if row[col] != args[i].Value {
			return false
		}
	}
	return true
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(rest[:open]))
	cols := splitColumns(rest[open+1 : closeIdx])
	return table, cols, nil
}

// parseUpdate handles "UPDATE t SET a = $1, b = $2 WHERE c = $3 [AND d = $4]".
func parseUpdate(query string) (string, []string, []string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	setIdx := strings.Index(lower, " set ")
	whereIdx := strings.Index(lower, " where ")
	if !strings.HasPrefix(lower, "update ") || setIdx == -1 || whereIdx == -1 || whereIdx < setIdx {
		return "", nil, nil, fmt.Errorf("cannot parse update: %s", query)
	}
	table := strings.TrimSpace(lower[len("update "):setIdx])
	var sets []string
	for _, assignment := range strings.Split(lower[setIdx+len(" set "):whereIdx], ",") {
		sets = append(sets, columnOf(assignment))
	}
	return table, sets, predicateColumns(lower[whereIdx+len(" where "):]), nil
}

// parseDelete handles "DELETE FROM t WHERE a = $1 [AND b = $2]".
func parseDelete(query string) (string, []string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	prefix := "delete from "
	whereToken := " where "
	if !strings.HasPrefix(lower, prefix) {
		return "", nil, fmt.Errorf("cannot parse delete: %s", query)
	}
	rest := strings.TrimSpace(lower[len(prefix):])
	whereIdx := strings.Index(rest, whereToken)
	if whereIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse delete: %s", query)
	}
	table := strings.TrimSpace(rest[:whereIdx])
	return table, predicateColumns(rest[whereIdx+len(whereToken):]), nil
}

func predicateColumns(where string) []string {
	var cols []string
	for _, part := range strings.Split(where, " and ") {
		cols = append(cols, columnOf(part))
	}
	return cols
}

func columnOf(expr string) string {
	parts := strings.SplitN(expr, "=", 2)
	return strings.TrimSpace(parts[0])
}

func parseSelect(query string) (string, []string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	selectPrefix := "select "
	fromToken := " from "
	if !strings.HasPrefix(lower, selectPrefix) {
		return "", nil, fmt.Errorf("cannot parse select: %s", query)
	}
	fromIdx := strings.Index(lower, fromToken)
	if fromIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse select: %s", query)
	}
	cols := lower[len(selectPrefix):fromIdx]
	table := strings.TrimSpace(lower[fromIdx+len(fromToken):])
	if table == "" {
		return "", nil, fmt.Errorf("cannot parse select: %s", query)
	}
	table = strings.Fields(table)[0]
	return table, splitColumns(cols), nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
