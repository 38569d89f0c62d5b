package domain

import "time"

// DefectHistory is an immutable audit record of one field change.
// Entries are only ever written inside the defect update transaction;
// old and new values are stringified, nil meaning the field held NULL.
type DefectHistory struct {
	ID        string
	DefectID  string
	ActorID   string
	ActorName string
	Field     string
	OldValue  *string
	NewValue  *string
	CreatedAt time.Time
}
