// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package example shows how a typed record is layered on top of
// sqlorm.Record.
package example

import (
	"context"

	"gopkg.in/guregu/null.v4"

	"github.com/canonical/sqlorm"
)

// ContactType binds records to the contact table.
var ContactType = &sqlorm.RecordType{
	Name:  "Contact",
	Table: "contact",
}

// CreateContactTable is the schema used by the demo and tests.
const CreateContactTable = `
CREATE TABLE IF NOT EXISTS contact (
	id INTEGER PRIMARY KEY,
	name TEXT,
	email TEXT
);`

// Contact is a row of the contact table.
type Contact struct {
	*sqlorm.Record
}

// Register makes conn aware of [ContactType].
func Register(conn *sqlorm.Conn) error {
	return conn.Register(ContactType)
}

// Contacts returns a query on the contact table whose records can be
// wrapped with [AsContact].
func Contacts(conn *sqlorm.Conn) *sqlorm.Query {
	return conn.Query(ContactType.Name)
}

// NewContact returns a contact that is inserted on its first save. conn must
// have [ContactType] registered.
func NewContact(conn *sqlorm.Conn) Contact {
	return Contact{conn.NewRecord(ContactType.Name, nil)}
}

// AsContact wraps r if it is bound to [ContactType].
func AsContact(r *sqlorm.Record) (Contact, bool) {
	if r == nil || r.Type() != ContactType {
		return Contact{}, false
	}
	return Contact{r}, true
}

// FindContacts runs q and wraps every record. Records that are not bound to
// [ContactType] are skipped.
func FindContacts(ctx context.Context, q *sqlorm.Query) ([]Contact, error) {
	records, err := q.FindMany(ctx)
	if err != nil {
		return nil, err
	}
	contacts := make([]Contact, 0, len(records))
	for _, r := range records {
		if c, ok := AsContact(r); ok {
			contacts = append(contacts, c)
		}
	}
	return contacts, nil
}

// ID returns the contact id, which is invalid until the contact is saved.
func (c Contact) ID() null.Int {
	return c.GetInt("id")
}

// SetID sets the contact id.
func (c Contact) SetID(id int64) {
	c.Set("id", id)
}

// Name returns the contact name.
func (c Contact) Name() null.String {
	return c.GetString("name")
}

// SetName sets the contact name.
func (c Contact) SetName(name string) {
	c.Set("name", name)
}

// Email returns the contact email address.
func (c Contact) Email() null.String {
	return c.GetString("email")
}

// SetEmail sets the contact email address.
func (c Contact) SetEmail(email string) {
	c.Set("email", email)
}
