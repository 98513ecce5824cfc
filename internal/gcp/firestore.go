package gcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/pdftotext/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreRecorder writes one ConversionRecord per source object.
type FirestoreRecorder struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreRecorder(ctx context.Context, projectID, collection string) (*FirestoreRecorder, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection must be provided to record conversions")
	}
	client, err := NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &FirestoreRecorder{client: client, collection: collection}, nil
}

// Record overwrites the record of the source object named in rec.
func (r *FirestoreRecorder) Record(ctx context.Context, rec models.ConversionRecord) error {
	docID := RecordID(rec.SourceBucket, rec.SourceKey)
	if _, err := r.client.Collection(r.collection).Doc(docID).Set(ctx, rec); err != nil {
		return fmt.Errorf("failed to write conversion record %s: %w", docID, err)
	}
	return nil
}

func (r *FirestoreRecorder) Close() error {
	return r.client.Close()
}

// RecordID derives a stable document ID from the source location.
// Object keys may contain '/', which Firestore does not allow in IDs.
func RecordID(bucket, key string) string {
	sum := sha256.Sum256([]byte(bucket + "/" + key))
	return hex.EncodeToString(sum[:])
}
