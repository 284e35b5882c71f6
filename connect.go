// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite3"
	DriverPGX      = "pgx"
	DriverPQ       = "postgres"
	DriverMySQL    = "mysql"
	defaultDriver  = DriverSQLite
	memoryDatabase = ":memory:"
)

// connectionPrefixes maps the scheme at the start of a connection string to
// a driver.
var connectionPrefixes = map[string]string{
	"sqlite":  DriverSQLite,
	"sqlite3": DriverSQLite,
	"pgsql":   DriverPGX,
	"pgx":     DriverPGX,
	"pq":      DriverPQ,
	"mysql":   DriverMySQL,
}

// dataSource is a driver name with the driver specific data source name.
type dataSource struct {
	driver string
	dsn    string
}

// parseConnectionString splits a connection string into a driver and a data
// source name. An explicit driver in the config takes precedence.
func parseConnectionString(cfg Config) (dataSource, error) {
	s := cfg.ConnectionString
	if strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://") {
		driver := DriverPGX
		if cfg.Driver != "" {
			driver = cfg.Driver
		}
		return dataSource{driver: driver, dsn: s}, nil
	}

	if i := strings.Index(s, ":"); i > 0 {
		if driver, ok := connectionPrefixes[strings.ToLower(s[:i])]; ok {
			if cfg.Driver != "" {
				driver = cfg.Driver
			}
			return dataSource{driver: driver, dsn: s[i+1:]}, nil
		}
	}

	if cfg.Driver != "" {
		return dataSource{driver: cfg.Driver, dsn: s}, nil
	}
	return dataSource{}, errors.Errorf("cannot determine driver from connection string %q", s)
}

// driverFamily returns the driver for cfg without connecting, or the default
// driver if the connection string is not understood.
func driverFamily(cfg Config) string {
	ds, err := parseConnectionString(cfg)
	if err != nil {
		return defaultDriver
	}
	return ds.driver
}

// openClient creates and pings the database client described by cfg.
func openClient(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ds, err := parseConnectionString(cfg)
	if err != nil {
		return nil, &ConnectionError{Driver: cfg.Driver, Err: err}
	}

	db, err := openDataSource(ds, cfg)
	if err != nil {
		return nil, &ConnectionError{Driver: ds.driver, Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ConnectionError{Driver: ds.driver, Err: err}
	}
	return db, nil
}

func openDataSource(ds dataSource, cfg Config) (*sqlx.DB, error) {
	switch ds.driver {
	case DriverSQLite:
		db, err := sqlx.Open(DriverSQLite, withQueryParams(ds.dsn, cfg.DriverOptions))
		if err != nil {
			return nil, err
		}
		// Every connection to an in-memory database gets its own database.
		if strings.Contains(ds.dsn, memoryDatabase) || strings.Contains(ds.dsn, "mode=memory") {
			db.SetMaxOpenConns(1)
		}
		return db, nil
	case DriverPGX:
		connConfig, err := pgx.ParseConfig(ds.dsn)
		if err != nil {
			return nil, errors.Wrap(err, "cannot parse pgx data source")
		}
		if cfg.Username != "" {
			connConfig.User = cfg.Username
		}
		if cfg.Password != "" {
			connConfig.Password = cfg.Password
		}
		for k, v := range cfg.DriverOptions {
			connConfig.RuntimeParams[k] = v
		}
		return sqlx.NewDb(stdlib.OpenDB(*connConfig), DriverPGX), nil
	case DriverPQ:
		dsn, err := pqDataSource(ds.dsn, cfg)
		if err != nil {
			return nil, err
		}
		return sqlx.Open(DriverPQ, dsn)
	case DriverMySQL:
		mysqlConfig, err := mysql.ParseDSN(ds.dsn)
		if err != nil {
			return nil, errors.Wrap(err, "cannot parse mysql data source")
		}
		if cfg.Username != "" {
			mysqlConfig.User = cfg.Username
		}
		if cfg.Password != "" {
			mysqlConfig.Passwd = cfg.Password
		}
		if len(cfg.DriverOptions) > 0 && mysqlConfig.Params == nil {
			mysqlConfig.Params = map[string]string{}
		}
		for k, v := range cfg.DriverOptions {
			mysqlConfig.Params[k] = v
		}
		return sqlx.Open(DriverMySQL, mysqlConfig.FormatDSN())
	default:
		if !driverRegistered(ds.driver) {
			return nil, errors.Errorf("unknown driver %q", ds.driver)
		}
		return sqlx.Open(ds.driver, ds.dsn)
	}
}

// pqDataSource converts dsn into the lib/pq key/value form and adds the
// configured credentials and options.
func pqDataSource(dsn string, cfg Config) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		kv, err := pq.ParseURL(dsn)
		if err != nil {
			return "", errors.Wrap(err, "cannot parse postgres URL")
		}
		dsn = kv
	}
	params := map[string]string{}
	for k, v := range cfg.DriverOptions {
		params[k] = v
	}
	if cfg.Username != "" {
		params["user"] = cfg.Username
	}
	if cfg.Password != "" {
		params["password"] = cfg.Password
	}
	parts := []string{}
	if dsn != "" {
		parts = append(parts, dsn)
	}
	for _, k := range sortedKeys(params) {
		parts = append(parts, k+"="+pqQuote(params[k]))
	}
	return strings.Join(parts, " "), nil
}

// pqQuote quotes a value for a lib/pq key/value data source.
func pqQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// withQueryParams appends options to dsn as URL style query parameters.
func withQueryParams(dsn string, options map[string]string) string {
	if len(options) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(dsn)
	for _, k := range sortedKeys(options) {
		b.WriteString(sep)
		b.WriteString(k + "=" + options[k])
		sep = "&"
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func driverRegistered(name string) bool {
	for _, d := range sql.Drivers() {
		if d == name {
			return true
		}
	}
	return false
}
