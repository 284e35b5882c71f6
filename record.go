// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlorm

import (
	"context"
	"database/sql"
	"sort"

	"gopkg.in/guregu/null.v4"

	"github.com/canonical/sqlorm/internal/convert"
	"github.com/canonical/sqlorm/internal/expr"
)

// SaveKind says what [Record.Save] did.
type SaveKind int

const (
	// Unchanged means the record had no dirty fields and nothing was run.
	Unchanged SaveKind = iota
	// Updated means an UPDATE was run.
	Updated
	// Inserted means an INSERT was run.
	Inserted
)

func (k SaveKind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case Inserted:
		return "inserted"
	}
	return "unknown"
}

// SaveResult is the outcome of [Record.Save].
type SaveResult struct {
	Kind SaveKind
	// InsertID is the id generated by the database for an insert. It is
	// only set if HasInsertID is true; some drivers cannot report it.
	InsertID    int64
	HasInsertID bool

	result sql.Result
}

// Result returns the [sql.Result] of the statement that was run, or nil if
// the record was unchanged.
func (r SaveResult) Result() sql.Result {
	return r.result
}

// Record is a single row of a table. It keeps the current value of every
// field and which fields have changed since the record was loaded or last
// saved. A Record is not safe for concurrent use.
type Record struct {
	conn       *Conn
	table      string
	recordType *RecordType

	// keys holds the field names in the order they were first set.
	keys []string
	data map[string]any
	// dirty holds the changed fields with their pending values, in the
	// order they were first changed. dirtyIndex maps a column to its
	// position in dirty.
	dirty      []expr.Field
	dirtyIndex map[string]int

	isNew bool
}

func newRecord(conn *Conn, table string, rt *RecordType) *Record {
	return &Record{
		conn:       conn,
		table:      table,
		recordType: rt,
		data:       map[string]any{},
		dirtyIndex: map[string]int{},
	}
}

// Table returns the table the record belongs to.
func (r *Record) Table() string {
	return r.table
}

// Type returns the record type the record is bound to, or nil.
func (r *Record) Type() *RecordType {
	return r.recordType
}

// IsNew reports whether the record will be inserted on its next save.
func (r *Record) IsNew() bool {
	return r.isNew
}

// Get returns the value of a field, or nil if it is not set.
func (r *Record) Get(key string) any {
	return r.data[key]
}

// Has reports whether a field is set, even to nil.
func (r *Record) Has(key string) bool {
	_, ok := r.data[key]
	return ok
}

// Set changes the value of a field and marks it dirty. The value is written
// by the next save even if the record is hydrated again in between.
func (r *Record) Set(key string, value any) {
	r.put(key, value)
	r.markDirty(key, value)
}

// IsDirty reports whether the field has changed since the last save.
func (r *Record) IsDirty(key string) bool {
	_, ok := r.dirtyIndex[key]
	return ok
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// AsMap returns a copy of the fields. If keys are given only those fields are
// included; keys that are not set are left out.
func (r *Record) AsMap(keys ...string) map[string]any {
	m := map[string]any{}
	if len(keys) == 0 {
		for k, v := range r.data {
			m[k] = v
		}
		return m
	}
	for _, k := range keys {
		if v, ok := r.data[k]; ok {
			m[k] = v
		}
	}
	return m
}

// Hydrate replaces every field with data, in sorted key order. It does not
// mark fields dirty, and values pending from [Record.Set] are still saved.
func (r *Record) Hydrate(data map[string]any) *Record {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.keys = nil
	r.data = map[string]any{}
	for _, k := range keys {
		r.put(k, data[k])
	}
	return r
}

// hydrateRow replaces every field with a result row, in column order.
func (r *Record) hydrateRow(row row) {
	r.keys = nil
	r.data = map[string]any{}
	for _, col := range row.columns {
		if v, ok := row.values[col]; ok {
			r.put(col, v)
		}
	}
}

// ForceAllDirty marks every field dirty so that the next save writes all of
// them.
func (r *Record) ForceAllDirty() *Record {
	for _, k := range r.keys {
		r.markDirty(k, r.data[k])
	}
	return r
}

// IDColumn returns the primary key column.
func (r *Record) IDColumn() string {
	return r.conn.idColumn(r.table, r.recordType)
}

// ID returns the primary key value, or nil.
func (r *Record) ID() any {
	return r.Get(r.IDColumn())
}

// Save writes the dirty fields. A new record is inserted, otherwise the
// record is updated by primary key. Saving a record with no dirty fields
// runs nothing and reports [Unchanged].
func (r *Record) Save(ctx context.Context) (SaveResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.isNew {
		return r.insert(ctx)
	}
	if len(r.dirty) == 0 {
		return SaveResult{Kind: Unchanged}, nil
	}
	return r.update(ctx)
}

func (r *Record) insert(ctx context.Context) (SaveResult, error) {
	q := r.conn.quoter()
	query, args, err := expr.Insert(q, r.table, r.dirtyFields())
	if err != nil {
		return SaveResult{}, &PreconditionError{Op: "insert into " + r.table, Err: err}
	}
	result, err := r.conn.exec(ctx, query, args)
	if err != nil {
		return SaveResult{}, err
	}
	r.clearDirty()
	r.isNew = false

	res := SaveResult{Kind: Inserted, result: result}
	if id, err := result.LastInsertId(); err == nil {
		res.InsertID = id
		res.HasInsertID = true
		if idCol := r.IDColumn(); r.Get(idCol) == nil {
			r.put(idCol, id)
		}
	}
	return res, nil
}

func (r *Record) update(ctx context.Context) (SaveResult, error) {
	id := r.ID()
	if id == nil {
		return SaveResult{}, &PreconditionError{Op: "update " + r.table, Err: ErrMissingID}
	}
	query, args, err := expr.Update(r.conn.quoter(), r.table, r.dirtyFields(), r.IDColumn(), id)
	if err != nil {
		return SaveResult{}, &PreconditionError{Op: "update " + r.table, Err: err}
	}
	result, err := r.conn.exec(ctx, query, args)
	if err != nil {
		return SaveResult{}, err
	}
	r.clearDirty()
	return SaveResult{Kind: Updated, result: result}, nil
}

// Delete removes the row with the record's primary key.
func (r *Record) Delete(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id := r.ID()
	if id == nil {
		return &PreconditionError{Op: "delete from " + r.table, Err: ErrMissingID}
	}
	query, args, err := expr.Delete(r.conn.quoter(), r.table, r.IDColumn(), id)
	if err != nil {
		return &PreconditionError{Op: "delete from " + r.table, Err: err}
	}
	_, err = r.conn.exec(ctx, query, args)
	return err
}

// GetString returns a field as a [null.String]. It is invalid if the field is
// nil or not set.
func (r *Record) GetString(key string) null.String {
	s, ok := convert.String(r.Get(key))
	return null.NewString(s, ok)
}

// GetInt returns a field as a [null.Int]. It is invalid if the field is nil,
// not set or not an integer.
func (r *Record) GetInt(key string) null.Int {
	n, ok := convert.Int64(r.Get(key))
	return null.NewInt(n, ok)
}

// GetFloat returns a field as a [null.Float].
func (r *Record) GetFloat(key string) null.Float {
	f, ok := convert.Float64(r.Get(key))
	return null.NewFloat(f, ok)
}

// GetBool returns a field as a [null.Bool].
func (r *Record) GetBool(key string) null.Bool {
	b, ok := convert.Bool(r.Get(key))
	return null.NewBool(b, ok)
}

func (r *Record) put(key string, value any) {
	if _, ok := r.data[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.data[key] = value
}

// markDirty records value as pending for key, keeping the position of a key
// that is already dirty.
func (r *Record) markDirty(key string, value any) {
	if i, ok := r.dirtyIndex[key]; ok {
		r.dirty[i].Value = value
		return
	}
	r.dirtyIndex[key] = len(r.dirty)
	r.dirty = append(r.dirty, expr.Field{Column: key, Value: value})
}

func (r *Record) clearDirty() {
	r.dirty = nil
	r.dirtyIndex = map[string]int{}
}

// dirtyFields returns the dirty fields with their pending values, in the
// order they were changed.
func (r *Record) dirtyFields() []expr.Field {
	return append([]expr.Field(nil), r.dirty...)
}
