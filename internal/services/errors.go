package services

import (
	"errors"
	"fmt"

	"github.com/Lllllllleong/pdftotext/internal/store"
)

// Kind classifies why a conversion did not produce output.
type Kind string

const (
	KindNoRecord          Kind = "NoRecord"
	KindInvalidEvent      Kind = "InvalidEvent"
	KindObjectNotFound    Kind = "ObjectNotFound"
	KindAccessDenied      Kind = "AccessDenied"
	KindStoreUnavailable  Kind = "StoreUnavailable"
	KindMalformedDocument Kind = "MalformedDocument"
	KindEncryptedDocument Kind = "EncryptedDocument"
	KindExtractionFailure Kind = "ExtractionFailure"
	KindWriteFailure      Kind = "WriteFailure"
)

// Stage names the pipeline step a failure originated in.
type Stage string

const (
	StageDecode  Stage = "decode"
	StageFetch   Stage = "fetch"
	StageParse   Stage = "parse"
	StageExtract Stage = "extract"
	StageWrite   Stage = "write"
)

// ConversionError is a fatal pipeline failure with the context needed to
// decide on retries or alerts outside the function.
type ConversionError struct {
	Kind   Kind
	Stage  Stage
	Bucket string
	Key    string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Bucket == "" && e.Key == "" {
		return fmt.Sprintf("%s during %s: %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s during %s of %s/%s: %v", e.Kind, e.Stage, e.Bucket, e.Key, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" if err is not a ConversionError.
func KindOf(err error) Kind {
	var cerr *ConversionError
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return ""
}

// storeReadKind maps a store read failure onto the error taxonomy.
func storeReadKind(err error) Kind {
	switch {
	case errors.Is(err, store.ErrObjectNotFound):
		return KindObjectNotFound
	case errors.Is(err, store.ErrAccessDenied):
		return KindAccessDenied
	default:
		return KindStoreUnavailable
	}
}
