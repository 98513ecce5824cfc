package models

import "time"

// Conversion statuses written to ConversionRecord.Status.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// ConversionRecord is the Firestore audit entry for one conversion of a source object.
// Reprocessing the same object overwrites its record.
type ConversionRecord struct {
	SourceBucket   string    `firestore:"sourceBucket,omitempty"`
	SourceKey      string    `firestore:"sourceKey,omitempty"`
	DestinationKey string    `firestore:"destinationKey,omitempty"`
	Status         string    `firestore:"status,omitempty"`
	ErrorKind      string    `firestore:"errorKind,omitempty"`
	ErrorDetails   string    `firestore:"errorDetails,omitempty"`
	PageCount      int       `firestore:"pageCount,omitempty"`
	ContentHash    string    `firestore:"contentHash,omitempty"` // sha256 of the source bytes
	CreatedAt      time.Time `firestore:"createdAt,omitempty"`
}
