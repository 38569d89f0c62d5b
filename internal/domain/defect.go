package domain

import "time"

// DefectPriority enumerates urgency levels.
type DefectPriority string

const (
	PriorityLow      DefectPriority = "Low"
	PriorityMedium   DefectPriority = "Medium"
	PriorityHigh     DefectPriority = "High"
	PriorityCritical DefectPriority = "Critical"
)

// ValidPriority reports whether the value is a known priority.
func ValidPriority(p DefectPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// DefectStatus is a lookup row describing a defect lifecycle state.
type DefectStatus struct {
	ID   int
	Name string
}

// Defect is the aggregate for reported construction issues.
type Defect struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Priority    DefectPriority
	StatusID    int
	AssigneeID  *string
	DueDate     *time.Time
	ReporterID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
