package domain

import "time"

// ProjectStage is a lookup row describing a construction phase.
type ProjectStage struct {
	ID   int
	Name string
}

// Project is the aggregate for construction sites under observation.
type Project struct {
	ID          string
	Name        string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	StageID     *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
