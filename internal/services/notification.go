package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Lllllllleong/pdftotext/internal/models"
)

// DecodeNotification extracts the source object from a trigger payload.
// It accepts an S3 event notification or a Cloud Storage object payload and
// reports ok == false when the payload names no object.
// Only the first S3 record is used.
func DecodeNotification(data []byte) (models.NotificationRecord, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return models.NotificationRecord{}, false, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return models.NotificationRecord{}, false, fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Match the top-level key the way encoding/json matches field names.
	for name := range fields {
		if strings.EqualFold(name, "Records") {
			return decodeS3Event(data)
		}
	}
	return decodeGCSEvent(data)
}

func decodeS3Event(data []byte) (models.NotificationRecord, bool, error) {
	var event models.S3Event
	if err := json.Unmarshal(data, &event); err != nil {
		return models.NotificationRecord{}, false, fmt.Errorf("failed to decode s3 event: %w", err)
	}
	if len(event.Records) == 0 {
		return models.NotificationRecord{}, false, nil
	}
	if n := len(event.Records); n > 1 {
		// Later records are ignored; the count is logged.
		slog.Warn("Event carries more than one record; only the first is processed.", "records", n, "ignored", n-1)
	}

	first := event.Records[0].S3
	key, err := url.QueryUnescape(first.Object.Key)
	if err != nil {
		return models.NotificationRecord{}, false, fmt.Errorf("failed to decode object key %q: %w", first.Object.Key, err)
	}
	if first.Bucket.Name == "" || key == "" {
		return models.NotificationRecord{}, false, fmt.Errorf("first record is missing bucket name or object key")
	}
	return models.NotificationRecord{Bucket: first.Bucket.Name, Key: key}, true, nil
}

func decodeGCSEvent(data []byte) (models.NotificationRecord, bool, error) {
	var event models.GCSEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return models.NotificationRecord{}, false, fmt.Errorf("failed to decode storage event: %w", err)
	}
	if event.Bucket == "" || event.Name == "" {
		return models.NotificationRecord{}, false, nil
	}
	return models.NotificationRecord{Bucket: event.Bucket, Key: event.Name}, true, nil
}
