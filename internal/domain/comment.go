package domain

import "time"

// DefectComment is a discussion entry attached to a defect.
type DefectComment struct {
	ID         string
	DefectID   string
	AuthorID   string
	AuthorName string
	Body       string
	CreatedAt  time.Time
}
