// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

import (
	"fmt"
	"sync"

	"github.com/iancoleman/strcase"
)

// RecordType describes a row shape that queries and records can be bound
// to. Registering a RecordType on a [Conn] lets [Conn.Query] and
// [Conn.NewRecord] be called with its Name instead of a table name; the
// resulting records carry the type so typed wrappers can recognise them.
type RecordType struct {
	// Name is the lookup name, e.g. "Contact".
	Name string
	// Table is the table name. If empty, the snake case form of Name is
	// used.
	Table string
	// IDColumn overrides the primary key column configured on the Conn.
	IDColumn string
}

// TableName returns the table the type is stored in.
func (t *RecordType) TableName() string {
	if t.Table != "" {
		return t.Table
	}
	return strcase.ToSnake(t.Name)
}

// typeRegistry maps record type names to record types.
type typeRegistry struct {
	mutex sync.RWMutex
	types map[string]*RecordType
}

func newTypeRegistry() *typeRegistry {
	return &typeRegistry{types: map[string]*RecordType{}}
}

func (r *typeRegistry) register(t *RecordType) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("record type needs a name")
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if existing, ok := r.types[t.Name]; ok && existing != t {
		return fmt.Errorf("record type %q already registered", t.Name)
	}
	r.types[t.Name] = t
	return nil
}

func (r *typeRegistry) lookup(name string) (*RecordType, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	t, ok := r.types[name]
	return t, ok
}
