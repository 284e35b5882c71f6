// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Command demo stores a couple of contacts and lists them back, once through
// the typed Contact record and once as plain records.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/canonical/sqlorm"
	"github.com/canonical/sqlorm/example"
)

var dsn = flag.String("db", "sqlite:./demo.sqlite", "connection string of the demo database")

func run(ctx context.Context) error {
	conn := sqlorm.Open(*dsn)
	defer conn.Close()
	if err := example.Register(conn); err != nil {
		return err
	}

	// Create the table if it is not there yet.
	db, err := conn.Client(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, example.CreateContactTable); err != nil {
		return err
	}

	record := conn.NewRecord("contact", nil)
	record.Set("name", "Testi")
	if _, err := record.Save(ctx); err != nil {
		return err
	}

	contact := example.NewContact(conn)
	contact.SetName("Tester2")
	contact.SetEmail("Tester2@example.org")
	if _, err := contact.Save(ctx); err != nil {
		return err
	}

	// Find contacts as typed records.
	contacts, err := example.FindContacts(ctx, example.Contacts(conn).WhereGt("id", 1))
	if err != nil {
		return err
	}
	for _, c := range contacts {
		fmt.Printf("Contact %d: %s <%s>\n", c.ID().Int64, c.Name().String, c.Email().ValueOrZero())
	}

	// Find contacts as plain records.
	records, err := conn.Query("contact").FindMany(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Printf("%s %s\n", r.Table(), formatFields(r.AsMap()))
	}

	fmt.Println("done!")
	return nil
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%v", k, fields[k])
	}
	return s
}

func main() {
	flag.Parse()
	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
