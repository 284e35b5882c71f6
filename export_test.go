// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

// CachedStatements returns the number of prepared statements kept by c.
func (c *Conn) CachedStatements() int {
	return c.stmts.len()
}

// DriverFor returns the driver and data source name cfg resolves to.
func DriverFor(cfg Config) (string, string, error) {
	ds, err := parseConnectionString(cfg.withDefaults())
	return ds.driver, ds.dsn, err
}
