// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
)

// statementCache keeps the prepared statements of a single Conn, indexed by
// their SQL. It is only used when caching is enabled on the Conn.
//
// The mutex must be locked when accessing stmts.
type statementCache struct {
	stmts map[string]*sqlx.Stmt
	mutex sync.RWMutex
}

func newStatementCache() *statementCache {
	return &statementCache{
		stmts: map[string]*sqlx.Stmt{},
	}
}

// prepareSubstrate is an object that queries can be prepared on, e.g. a
// sqlx.DB.
type prepareSubstrate interface {
	PreparexContext(context.Context, string) (*sqlx.Stmt, error)
}

// prepare returns the prepared statement for query, preparing it on ps if it
// is not in the cache yet.
func (sc *statementCache) prepare(ctx context.Context, ps prepareSubstrate, query string) (*sqlx.Stmt, error) {
	sc.mutex.RLock()
	stmt, ok := sc.stmts[query]
	sc.mutex.RUnlock()
	if ok {
		return stmt, nil
	}

	stmt, err := ps.PreparexContext(ctx, query)
	if err != nil {
		return nil, err
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	// Check if a statement has been inserted by someone else since we last
	// checked.
	if alt, ok := sc.stmts[query]; ok {
		stmt.Close()
		return alt, nil
	}
	sc.stmts[query] = stmt
	return stmt, nil
}

// len returns the number of cached statements.
func (sc *statementCache) len() int {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return len(sc.stmts)
}

// close closes and forgets every cached statement. The first error is
// returned.
func (sc *statementCache) close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	var err error
	for query, stmt := range sc.stmts {
		if cerr := stmt.Close(); err == nil {
			err = cerr
		}
		delete(sc.stmts, query)
	}
	return err
}
