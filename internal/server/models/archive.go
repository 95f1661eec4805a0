package models

import "time"

const (
	UploadStatusPending   = "pending"
	UploadStatusCompleted = "completed"
)

// ExportArchive describes a compressed export stored in object storage.
type ExportArchive struct {
	ID           string
	UserID       string
	ObjectKey    string
	Format       string
	Dates        DateRange
	SizeBytes    int64
	UploadStatus string
	CreatedAt    time.Time
}
