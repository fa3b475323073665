package models

import "github.com/google/uuid"

// assignID gives a record a client-side UUID before insert so the same
// models work against Postgres and SQLite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
