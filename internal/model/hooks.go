package model

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the primary key is still zero. Ids are
// generated client-side so the same models migrate on PostgreSQL and SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
