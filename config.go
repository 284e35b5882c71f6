// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

import (
	"log"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrorMode controls what happens to errors from the database besides being
// returned to the caller.
type ErrorMode int

const (
	// ErrorModeReturn only returns errors.
	ErrorModeReturn ErrorMode = iota
	// ErrorModeLog logs errors to the configured logger before returning
	// them.
	ErrorModeLog
)

// Configuration keys accepted by [Conn.Configure].
const (
	KeyConnectionString  = "connection_string"
	KeyDriver            = "driver"
	KeyUsername          = "username"
	KeyPassword          = "password"
	KeyDriverOptions     = "driver_options"
	KeyErrorMode         = "error_mode"
	KeyQuoteChar         = "identifier_quote_character"
	KeyIDColumn          = "id_column"
	KeyIDColumnOverrides = "id_column_overrides"
	KeyLogging           = "logging"
	KeyCaching           = "caching"
)

// DefaultConnectionString is used when no connection string is configured.
const DefaultConnectionString = "sqlite::memory:"

// DefaultIDColumn is the primary key column used when none is configured.
const DefaultIDColumn = "id"

// Config holds the connection wide settings. It is read once, when the
// client is created.
type Config struct {
	// ConnectionString selects the driver and data source, e.g.
	// "sqlite:./demo.db", "pgsql:host=localhost dbname=app",
	// "postgres://user@localhost/app" or "mysql:tcp(localhost)/app".
	ConnectionString string
	// Driver overrides the database/sql driver name derived from
	// ConnectionString.
	Driver   string
	Username string
	Password string
	// DriverOptions are driver specific parameters added to the data source.
	DriverOptions map[string]string
	ErrorMode     ErrorMode
	// QuoteChar is the identifier quote character, or an opening and a
	// closing character such as "[]". If empty it is derived from the
	// driver.
	QuoteChar string
	// IDColumn is the primary key column of every table unless overridden
	// in IDColumnOverrides, keyed by table name.
	IDColumn          string
	IDColumnOverrides map[string]string
	// Logging enables logging of every statement run.
	Logging bool
	// Logger receives log output. If nil the standard logger is used.
	Logger *log.Logger
	// Caching keeps prepared statements for reuse.
	Caching bool
}

func (c Config) withDefaults() Config {
	if c.ConnectionString == "" {
		c.ConnectionString = DefaultConnectionString
	}
	if c.IDColumn == "" {
		c.IDColumn = DefaultIDColumn
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

// set assigns the value for a configuration key.
func (c *Config) set(key string, value any) (err error) {
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, "cannot configure %q", key)
		}
	}()

	switch key {
	case KeyConnectionString:
		return setString(&c.ConnectionString, value)
	case KeyDriver:
		return setString(&c.Driver, value)
	case KeyUsername:
		return setString(&c.Username, value)
	case KeyPassword:
		return setString(&c.Password, value)
	case KeyQuoteChar:
		if value == nil {
			c.QuoteChar = ""
			return nil
		}
		var quoteChar string
		if err := setString(&quoteChar, value); err != nil {
			return err
		}
		if err := checkQuoteChar(quoteChar); err != nil {
			return err
		}
		c.QuoteChar = quoteChar
	case KeyIDColumn:
		return setString(&c.IDColumn, value)
	case KeyDriverOptions:
		return setStringMap(&c.DriverOptions, value)
	case KeyIDColumnOverrides:
		return setStringMap(&c.IDColumnOverrides, value)
	case KeyErrorMode:
		mode, ok := value.(ErrorMode)
		if !ok {
			return errors.Errorf("need ErrorMode, got %T", value)
		}
		c.ErrorMode = mode
	case KeyLogging:
		return setBool(&c.Logging, value)
	case KeyCaching:
		return setBool(&c.Caching, value)
	default:
		return errors.New("unknown key")
	}
	return nil
}

// checkQuoteChar accepts one quote character or an open/close pair.
func checkQuoteChar(s string) error {
	if n := utf8.RuneCountInString(s); n > 2 {
		return errors.Errorf("need at most two quote characters, got %q", s)
	}
	return nil
}

func setString(dst *string, value any) error {
	s, ok := value.(string)
	if !ok {
		return errors.Errorf("need string, got %T", value)
	}
	*dst = s
	return nil
}

func setBool(dst *bool, value any) error {
	b, ok := value.(bool)
	if !ok {
		return errors.Errorf("need bool, got %T", value)
	}
	*dst = b
	return nil
}

func setStringMap(dst *map[string]string, value any) error {
	switch m := value.(type) {
	case nil:
		*dst = nil
	case map[string]string:
		*dst = m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, v := range m {
			s, ok := v.(string)
			if !ok {
				return errors.Errorf("need string value for %q, got %T", k, v)
			}
			out[k] = s
		}
		*dst = out
	default:
		return errors.Errorf("need map[string]string, got %T", value)
	}
	return nil
}
