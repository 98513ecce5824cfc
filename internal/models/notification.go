package models

// These structs define the trigger payloads accepted by the conversion function.

// NotificationRecord identifies the newly created source object.
// Key is already percent-decoded.
type NotificationRecord struct {
	Bucket string
	Key    string
}

// S3Event is an Amazon S3 event notification.
type S3Event struct {
	Records []S3EventRecord `json:"Records"`
}

type S3EventRecord struct {
	EventSource string `json:"eventSource,omitempty"`
	AwsRegion   string `json:"awsRegion,omitempty"`
	EventName   string `json:"eventName,omitempty"`
	S3          S3Data `json:"s3"`
}

type S3Data struct {
	Bucket S3BucketData `json:"bucket"`
	Object S3ObjectData `json:"object"`
}

type S3BucketData struct {
	Name string `json:"name"`
}

// S3ObjectData carries the object key as sent by S3: form-encoded, with '+' for spaces.
type S3ObjectData struct {
	Key  string `json:"key"`
	Size int64  `json:"size,omitempty"`
}

// GCSEvent is the data of a google.cloud.storage.object.v1.finalized CloudEvent.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
