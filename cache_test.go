// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
	. "gopkg.in/check.v1"
)

type CacheSuite struct{}

var _ = Suite(&CacheSuite{})

func (s *CacheSuite) TearDownSuite(_ *C) {
	resetCounts()
}

func (s *CacheSuite) TestPreparedStatementReuse(c *C) {
	conn := s.openConn(c, true)
	defer conn.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		records, err := conn.Query("item").WhereEqual("id", 1).FindMany(ctx)
		c.Assert(err, IsNil)
		c.Assert(records, HasLen, 1)
	}

	c.Check(conn.CachedStatements(), Equals, 1)
	c.Check(counted(stmtsPrepared, c.TestName()), Equals, 1)
	c.Check(counted(stmtQueriesRun, c.TestName()), Equals, 3)
	c.Check(counted(dbQueriesRun, c.TestName()), Equals, 0)
}

func (s *CacheSuite) TestDifferentStatementsPreparedSeparately(c *C) {
	conn := s.openConn(c, true)
	defer conn.Close()
	ctx := context.Background()

	_, err := conn.Query("item").FindMany(ctx)
	c.Assert(err, IsNil)
	_, err = conn.Query("item").Count(ctx)
	c.Assert(err, IsNil)
	_, err = conn.Query("item").FindMany(ctx)
	c.Assert(err, IsNil)

	c.Check(conn.CachedStatements(), Equals, 2)
	c.Check(counted(stmtsPrepared, c.TestName()), Equals, 2)
}

func (s *CacheSuite) TestNoCachingRunsOnDB(c *C) {
	conn := s.openConn(c, false)
	defer conn.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := conn.Query("item").FindMany(ctx)
		c.Assert(err, IsNil)
	}

	c.Check(conn.CachedStatements(), Equals, 0)
	c.Check(counted(stmtsPrepared, c.TestName()), Equals, 0)
	c.Check(counted(dbQueriesRun, c.TestName()), Equals, 2)
}

func (s *CacheSuite) TestCleanSaveRunsNothing(c *C) {
	conn := s.openConn(c, false)
	defer conn.Close()
	ctx := context.Background()

	r, err := conn.Query("item").FindByID(ctx, 1)
	c.Assert(err, IsNil)
	before := counted(dbQueriesRun, c.TestName())

	res, err := r.Save(ctx)
	c.Assert(err, IsNil)
	c.Check(res.Kind, Equals, Unchanged)
	c.Check(res.Result(), IsNil)
	c.Check(counted(dbQueriesRun, c.TestName()), Equals, before)
}

func (s *CacheSuite) TestWritesUseCache(c *C) {
	conn := s.openConn(c, true)
	defer conn.Close()
	ctx := context.Background()

	r, err := conn.Query("item").FindByID(ctx, 1)
	c.Assert(err, IsNil)
	for _, name := range []string{"first", "second"} {
		r.Set("name", name)
		res, err := r.Save(ctx)
		c.Assert(err, IsNil)
		c.Check(res.Kind, Equals, Updated)
	}

	// One SELECT and one UPDATE.
	c.Check(conn.CachedStatements(), Equals, 2)
	c.Check(counted(stmtQueriesRun, c.TestName()), Equals, 3)
}

func (s *CacheSuite) TestCloseClosesStatements(c *C) {
	conn := s.openConn(c, true)
	_, err := conn.Query("item").FindMany(context.Background())
	c.Assert(err, IsNil)
	c.Assert(conn.CachedStatements(), Equals, 1)

	c.Assert(conn.Close(), IsNil)
	c.Check(conn.CachedStatements(), Equals, 0)
}

func (s *CacheSuite) TestSetClientDropsStatements(c *C) {
	oldDB := s.openNamedDB(c, c.TestName()+"-old")
	defer oldDB.Close()
	newDB := s.openNamedDB(c, c.TestName()+"-new")
	defer newDB.Close()
	_, err := oldDB.Exec(`UPDATE item SET name = 'OldDB'`)
	c.Assert(err, IsNil)
	_, err = newDB.Exec(`UPDATE item SET name = 'NewDB'`)
	c.Assert(err, IsNil)
	ctx := context.Background()

	conn := New(Config{Caching: true})
	c.Assert(conn.SetClient(oldDB), IsNil)
	r, err := conn.Query("item").FindByID(ctx, 1)
	c.Assert(err, IsNil)
	c.Check(r.Get("name"), Equals, "OldDB")
	c.Check(conn.CachedStatements(), Equals, 1)

	// Installing the same client keeps the statements.
	c.Assert(conn.SetClient(oldDB), IsNil)
	c.Check(conn.CachedStatements(), Equals, 1)

	c.Assert(conn.SetClient(newDB), IsNil)
	c.Check(conn.CachedStatements(), Equals, 0)
	r, err = conn.Query("item").FindByID(ctx, 1)
	c.Assert(err, IsNil)
	c.Check(r.Get("name"), Equals, "NewDB")

	// The old client can go away without breaking the Conn.
	c.Assert(oldDB.Close(), IsNil)
	r, err = conn.Query("item").FindByID(ctx, 1)
	c.Assert(err, IsNil)
	c.Check(r.Get("name"), Equals, "NewDB")
}

func (s *CacheSuite) TestConcurrentPrepare(c *C) {
	db := s.openDB(c)
	defer db.Close()
	sc := newStatementCache()
	defer sc.close()

	var wg sync.WaitGroup
	stmts := make([]*sqlx.Stmt, 10)
	errs := make([]error, 10)
	for i := range stmts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stmts[i], errs[i] = sc.prepare(context.Background(), db, `SELECT name FROM item`)
		}(i)
	}
	wg.Wait()

	for i := range stmts {
		c.Assert(errs[i], IsNil)
		c.Check(stmts[i], Equals, stmts[0])
	}
	c.Check(sc.len(), Equals, 1)
}

func (s *CacheSuite) TestPrepareError(c *C) {
	db := s.openDB(c)
	defer db.Close()
	sc := newStatementCache()

	_, err := sc.prepare(context.Background(), db, `SELECT * FROM missing`)
	c.Assert(err, ErrorMatches, "no such table: missing")
	c.Check(sc.len(), Equals, 0)
}

// openDB opens a database with one row in the item table on the counting
// driver.
func (s *CacheSuite) openDB(c *C) *sqlx.DB {
	return s.openNamedDB(c, c.TestName())
}

// openNamedDB is like openDB but the in-memory database is named file. The
// statement counts are still recorded against the test.
func (s *CacheSuite) openNamedDB(c *C, file string) *sqlx.DB {
	db, err := sqlx.Open(countingDriver, "file:"+file+"?mode=memory&cache=shared&"+testNameTag+"="+c.TestName())
	c.Assert(err, IsNil)
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS item (
	id integer PRIMARY KEY,
	name text
);
DELETE FROM item;
INSERT INTO item (id, name) VALUES (1, 'widget');
`)
	c.Assert(err, IsNil)
	return db
}

func (s *CacheSuite) openConn(c *C, caching bool) *Conn {
	db := s.openDB(c)
	conn := New(Config{Caching: caching})
	c.Assert(conn.SetClient(db), IsNil)
	// Setup statements are not counted against the test.
	resetCounts()
	return conn
}
