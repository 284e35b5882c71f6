// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// This file contains a wrapper sql.Driver over the SQLite driver which counts
// the statements prepared on and run against the database. The counts are
// indexed by test name so that tests can check exactly how much work an
// operation did.

const countingDriver = "sqlite3_counted"

// testNameTag is the data source parameter holding the test name.
const testNameTag = "testName"

// stmtsPrepared, dbQueriesRun and stmtQueriesRun count prepared statements,
// statements run directly on a connection and statements run through a
// prepared statement. countsMutex must be held when accessing them.
var (
	stmtsPrepared  = map[string]int{}
	dbQueriesRun   = map[string]int{}
	stmtQueriesRun = map[string]int{}
	countsMutex    sync.Mutex
)

func count(counts map[string]int, testName string) {
	countsMutex.Lock()
	defer countsMutex.Unlock()
	counts[testName]++
}

func counted(counts map[string]int, testName string) int {
	countsMutex.Lock()
	defer countsMutex.Unlock()
	return counts[testName]
}

func resetCounts() {
	countsMutex.Lock()
	defer countsMutex.Unlock()
	stmtsPrepared = map[string]int{}
	dbQueriesRun = map[string]int{}
	stmtQueriesRun = map[string]int{}
}

type countingSQLiteDriver struct {
	driver.Driver
}

type countingConn struct {
	testName string
	*sqlite3.SQLiteConn
}

type countingStmt struct {
	testName string
	*sqlite3.SQLiteStmt
}

func (c *countingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	s, err := c.SQLiteConn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	sm, ok := s.(*sqlite3.SQLiteStmt)
	if !ok {
		panic(fmt.Sprintf("internal error: base driver is not SQLite, got %T", s))
	}
	count(stmtsPrepared, c.testName)
	return &countingStmt{SQLiteStmt: sm, testName: c.testName}, nil
}

func (c *countingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *countingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	rows, err := c.SQLiteConn.QueryContext(ctx, query, args)
	if err == nil {
		count(dbQueriesRun, c.testName)
	}
	return rows, err
}

func (c *countingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	res, err := c.SQLiteConn.ExecContext(ctx, query, args)
	if err == nil {
		count(dbQueriesRun, c.testName)
	}
	return res, err
}

func (s *countingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	rows, err := s.SQLiteStmt.QueryContext(ctx, args)
	if err == nil {
		count(stmtQueriesRun, s.testName)
	}
	return rows, err
}

func (s *countingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	res, err := s.SQLiteStmt.ExecContext(ctx, args)
	if err == nil {
		count(stmtQueriesRun, s.testName)
	}
	return res, err
}

// Open expects the DSN to contain the test name in the testName parameter.
func (d *countingSQLiteDriver) Open(name string) (driver.Conn, error) {
	var testName string
	if i := strings.Index(name, "?"); i >= 0 {
		for _, p := range strings.Split(name[i+1:], "&") {
			if v, ok := strings.CutPrefix(p, testNameTag+"="); ok {
				testName = v
			}
		}
	}
	if testName == "" {
		panic("internal error: testName is not found in the db DSN")
	}

	baseConn, err := d.Driver.Open(name)
	if err != nil {
		return nil, err
	}
	sc, ok := baseConn.(*sqlite3.SQLiteConn)
	if !ok {
		panic("internal error: base driver is not SQLite")
	}
	return &countingConn{SQLiteConn: sc, testName: testName}, nil
}

func init() {
	sql.Register(countingDriver, &countingSQLiteDriver{
		&sqlite3.SQLiteDriver{},
	})
}
