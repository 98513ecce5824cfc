package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/pdftotext/internal/config"
	"github.com/Lllllllleong/pdftotext/internal/gcp"
	"github.com/Lllllllleong/pdftotext/internal/models"
	"github.com/Lllllllleong/pdftotext/internal/store"
)

const (
	outputPrefix = "output/converted-"
	outputSuffix = ".txt"
)

// State is a step of a single conversion run.
type State string

const (
	StateIdle      State = "Idle"
	StateDecoded   State = "Decoded"
	StateFetched   State = "Fetched"
	StateParsed    State = "Parsed"
	StateExtracted State = "Extracted"
	StateWritten   State = "Written"
	StateDone      State = "Done"
	StateNoOp      State = "NoOp"
	StateFailed    State = "Failed"
)

// Outcome tags the result of a run.
type Outcome string

const (
	OutcomeNoOp    Outcome = "NoOp"
	OutcomeSuccess Outcome = "Success"
	OutcomeFailed  Outcome = "Failed"
)

// Result is the outcome of one Process call.
type Result struct {
	Outcome        Outcome
	State          State
	Record         models.NotificationRecord
	DestinationKey string
	PageCount      int
	// Text is the extracted text; set only on success.
	Text  string
	Error *ConversionError

	policy config.ErrorPolicy
}

// Err returns the error to report to the runtime under the configured error policy.
func (r Result) Err() error {
	if r.Outcome != OutcomeFailed || r.Error == nil {
		return nil
	}
	if r.policy == config.ErrorPolicyLogAndExit {
		return nil
	}
	return r.Error
}

// Recorder persists the outcome of a conversion. It is never read by the pipeline.
type Recorder interface {
	Record(ctx context.Context, rec models.ConversionRecord) error
}

// DestinationKey derives the output object key from the source key.
func DestinationKey(sourceKey string) string {
	return outputPrefix + sourceKey + outputSuffix
}

// ConverterFunction holds the dependencies for the conversion logic.
type ConverterFunction struct {
	store     store.Store
	parser    *Parser
	extractor *Extractor
	recorder  Recorder
	policy    config.ErrorPolicy
	now       func() time.Time
}

// NewConverter builds the store and optional recorder named by cfg.
func NewConverter(ctx context.Context, cfg *config.Config) (*ConverterFunction, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var st store.Store
	switch cfg.StoreBackend {
	case config.BackendS3:
		s3Store, err := store.NewS3Store(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 store: %w", err)
		}
		st = s3Store
	case config.BackendGCS:
		gcsStore, err := gcp.NewGCSStore(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("failed to create gcs store: %w", err)
		}
		st = gcsStore
	case config.BackendMemory:
		st = store.NewMemoryStore()
	}

	var recorder Recorder
	if cfg.Recorder.Enabled() {
		fr, err := gcp.NewFirestoreRecorder(ctx, cfg.Recorder.ProjectID, cfg.Recorder.Collection)
		if err != nil {
			return nil, fmt.Errorf("failed to create conversion recorder: %w", err)
		}
		recorder = fr
	}

	f := NewConverterWithStore(st, recorder, cfg)
	slog.Info("PDF converter initialized.", "storeBackend", cfg.StoreBackend, "errorPolicy", cfg.ErrorPolicy, "recording", recorder != nil)
	return f, nil
}

// NewConverterWithStore wires a converter around an existing store. recorder may be nil.
func NewConverterWithStore(st store.Store, recorder Recorder, cfg *config.Config) *ConverterFunction {
	policy := cfg.ErrorPolicy
	if policy == "" {
		policy = config.ErrorPolicyAbort
	}
	return &ConverterFunction{
		store:     st,
		parser:    NewParser(cfg.ValidateStructure),
		extractor: NewExtractor(),
		recorder:  recorder,
		policy:    policy,
		now:       time.Now,
	}
}

// Process runs one conversion for the object named in the trigger payload.
// Nothing is written unless every earlier step succeeded.
func (f *ConverterFunction) Process(ctx context.Context, data []byte) Result {
	res := Result{State: StateIdle, policy: f.policy}

	record, ok, err := DecodeNotification(data)
	if err != nil {
		return f.handleError(ctx, slog.Default(), res, "", KindInvalidEvent, StageDecode, err)
	}
	if !ok {
		slog.Info("Record not found in event. Exiting.")
		res.State = StateNoOp
		res.Outcome = OutcomeNoOp
		return res
	}
	res.Record = record
	res.DestinationKey = DestinationKey(record.Key)
	res.State = StateDecoded

	logCtx := slog.With("bucket", record.Bucket, "key", record.Key)
	logCtx.Info("Processing new object.", "destinationKey", res.DestinationKey)

	source, err := f.store.Get(ctx, record.Bucket, record.Key)
	if err != nil {
		return f.handleError(ctx, logCtx, res, "", storeReadKind(err), StageFetch, err)
	}
	res.State = StateFetched
	hash := contentHash(source)
	logCtx = logCtx.With("contentHash", hash)
	logCtx.Info("Fetched source object.", "bytes", len(source))

	doc, err := f.parser.Parse(record.Bucket, record.Key, source)
	if err != nil {
		kind := KindMalformedDocument
		if errors.Is(err, ErrEncryptedDocument) {
			kind = KindEncryptedDocument
		}
		return f.handleError(ctx, logCtx, res, hash, kind, StageParse, err)
	}
	res.State = StateParsed
	res.PageCount = doc.PageCount

	text, err := f.extractor.Extract(doc)
	if err != nil {
		return f.handleError(ctx, logCtx, res, hash, KindExtractionFailure, StageExtract, err)
	}
	res.State = StateExtracted
	logCtx.Debug("PDF text extracted.", "pageCount", doc.PageCount, "chars", len(text))

	if err := f.store.Put(ctx, record.Bucket, res.DestinationKey, []byte(text), store.ContentTypeText); err != nil {
		return f.handleError(ctx, logCtx, res, hash, KindWriteFailure, StageWrite, err)
	}
	res.State = StateWritten
	logCtx.Info("Saved converted text.", "destinationKey", res.DestinationKey, "pageCount", doc.PageCount, "chars", len(text))

	res.State = StateDone
	res.Outcome = OutcomeSuccess
	res.Text = text
	f.record(ctx, logCtx, models.ConversionRecord{
		SourceBucket:   record.Bucket,
		SourceKey:      record.Key,
		DestinationKey: res.DestinationKey,
		Status:         models.StatusSucceeded,
		PageCount:      doc.PageCount,
		ContentHash:    hash,
		CreatedAt:      f.now(),
	})
	return res
}

// handleError moves res to Failed, logs the fault and records it.
func (f *ConverterFunction) handleError(ctx context.Context, logCtx *slog.Logger, res Result, hash string, kind Kind, stage Stage, originalErr error) Result {
	cerr := &ConversionError{
		Kind:   kind,
		Stage:  stage,
		Bucket: res.Record.Bucket,
		Key:    res.Record.Key,
		Err:    originalErr,
	}
	logCtx.Error("Conversion failed.", "errorKind", kind, "stage", stage, "error", originalErr)

	res.State = StateFailed
	res.Outcome = OutcomeFailed
	res.Error = cerr

	if res.Record.Key != "" {
		f.record(ctx, logCtx, models.ConversionRecord{
			SourceBucket:   res.Record.Bucket,
			SourceKey:      res.Record.Key,
			DestinationKey: res.DestinationKey,
			Status:         models.StatusFailed,
			ErrorKind:      string(kind),
			ErrorDetails:   cerr.Error(),
			PageCount:      res.PageCount,
			ContentHash:    hash,
			CreatedAt:      f.now(),
		})
	}
	return res
}

func (f *ConverterFunction) record(ctx context.Context, logCtx *slog.Logger, rec models.ConversionRecord) {
	if f.recorder == nil {
		return
	}
	if err := f.recorder.Record(ctx, rec); err != nil {
		logCtx.Error("Failed to write conversion record.", "status", rec.Status, "recordError", err)
	}
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
