package domain

import "time"

// Attachment holds metadata for a file linked to a defect. The file
// bytes themselves live in external storage addressed by StorageKey.
type Attachment struct {
	ID         string
	DefectID   string
	UploaderID string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
