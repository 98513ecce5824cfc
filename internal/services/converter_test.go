package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/Lllllllleong/pdftotext/internal/config"
	"github.com/Lllllllleong/pdftotext/internal/models"
	"github.com/Lllllllleong/pdftotext/internal/store"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	records []models.ConversionRecord
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, rec models.ConversionRecord) error {
	r.records = append(r.records, rec)
	return r.err
}

func s3Event(bucket, key string) []byte {
	return []byte(fmt.Sprintf(`{"Records":[{"s3":{"bucket":{"name":%q},"object":{"key":%q}}}]}`, bucket, key))
}

func newTestConverter(st store.Store, rec Recorder, policy config.ErrorPolicy) *ConverterFunction {
	return NewConverterWithStore(st, rec, &config.Config{
		StoreBackend:      config.BackendMemory,
		ErrorPolicy:       policy,
		ValidateStructure: true,
	})
}

func TestDestinationKey(t *testing.T) {
	assert.Equal(t, "output/converted-doc.pdf.txt", DestinationKey("doc.pdf"))
	assert.Equal(t, "output/converted-scans/2024/doc.pdf.txt", DestinationKey("scans/2024/doc.pdf"))
}

func TestProcess_EndToEnd(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	st.Seed("docs", "report.pdf", buildPDF(t, "Hello World"))
	rec := &fakeRecorder{}

	res := newTestConverter(st, rec, config.ErrorPolicyAbort).Process(ctx, s3Event("docs", "report.pdf"))

	require.NoError(t, res.Err())
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, "Hello World", res.Text)
	assert.Equal(t, "output/converted-report.pdf.txt", res.DestinationKey)
	assert.Equal(t, 1, res.PageCount)

	obj, ok := st.Object("docs", "output/converted-report.pdf.txt")
	require.True(t, ok)
	assert.Equal(t, "Hello World", string(obj.Body))
	assert.Equal(t, store.ContentTypeText, obj.ContentType)
	assert.Equal(t, 1, st.Puts())

	require.Len(t, rec.records, 1)
	assert.Equal(t, models.StatusSucceeded, rec.records[0].Status)
	assert.Equal(t, "report.pdf", rec.records[0].SourceKey)
	assert.Len(t, rec.records[0].ContentHash, 64)
}

func TestProcess_GCSPayload(t *testing.T) {
	st := store.NewMemoryStore()
	st.Seed("docs", "in/report.pdf", buildPDF(t, "Page A", "Page B"))

	res := newTestConverter(st, nil, config.ErrorPolicyAbort).Process(context.Background(), []byte(`{"bucket":"docs","name":"in/report.pdf"}`))

	require.NoError(t, res.Err())
	obj, ok := st.Object("docs", "output/converted-in/report.pdf.txt")
	require.True(t, ok)
	assert.Equal(t, "Page A\nPage B", string(obj.Body))
}

func TestProcess_NoRecordIsNoOp(t *testing.T) {
	st := store.NewMemoryStore()
	rec := &fakeRecorder{}

	res := newTestConverter(st, rec, config.ErrorPolicyAbort).Process(context.Background(), []byte(`{"Records":[]}`))

	assert.NoError(t, res.Err())
	assert.Equal(t, OutcomeNoOp, res.Outcome)
	assert.Equal(t, StateNoOp, res.State)
	assert.Empty(t, res.Text)
	assert.Equal(t, 0, st.Puts())
	assert.Empty(t, rec.records)
}

func TestProcess_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	st.Seed("docs", "report.pdf", buildPDF(t, "Hello World", "Second page"))
	f := newTestConverter(st, nil, config.ErrorPolicyAbort)

	first := f.Process(ctx, s3Event("docs", "report.pdf"))
	require.NoError(t, first.Err())
	firstObj, _ := st.Object("docs", "output/converted-report.pdf.txt")

	second := f.Process(ctx, s3Event("docs", "report.pdf"))
	require.NoError(t, second.Err())
	secondObj, _ := st.Object("docs", "output/converted-report.pdf.txt")

	assert.Equal(t, firstObj.Body, secondObj.Body)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 2, st.Puts())
}

func TestProcess_Failures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, st *store.MemoryStore)
		event     []byte
		wantKind  Kind
		wantStage Stage
		wantIs    error
	}{
		{
			name:      "invalid event",
			setup:     func(t *testing.T, st *store.MemoryStore) {},
			event:     []byte(`{"Records":`),
			wantKind:  KindInvalidEvent,
			wantStage: StageDecode,
		},
		{
			name:      "object not found",
			setup:     func(t *testing.T, st *store.MemoryStore) {},
			event:     s3Event("docs", "missing.pdf"),
			wantKind:  KindObjectNotFound,
			wantStage: StageFetch,
			wantIs:    store.ErrObjectNotFound,
		},
		{
			name: "access denied",
			setup: func(t *testing.T, st *store.MemoryStore) {
				st.Seed("docs", "missing.pdf", buildPDF(t, "x"))
				st.Deny("docs", "missing.pdf")
			},
			event:     s3Event("docs", "missing.pdf"),
			wantKind:  KindAccessDenied,
			wantStage: StageFetch,
			wantIs:    store.ErrAccessDenied,
		},
		{
			name:      "store unavailable",
			setup:     func(t *testing.T, st *store.MemoryStore) { st.GetErr = store.ErrStoreUnavailable },
			event:     s3Event("docs", "missing.pdf"),
			wantKind:  KindStoreUnavailable,
			wantStage: StageFetch,
			wantIs:    store.ErrStoreUnavailable,
		},
		{
			name:      "malformed document",
			setup:     func(t *testing.T, st *store.MemoryStore) { st.Seed("docs", "missing.pdf", []byte("%PDF-1.4\nnot really")) },
			event:     s3Event("docs", "missing.pdf"),
			wantKind:  KindMalformedDocument,
			wantStage: StageParse,
			wantIs:    ErrMalformedDocument,
		},
		{
			name: "encrypted document",
			setup: func(t *testing.T, st *store.MemoryStore) {
				st.Seed("docs", "missing.pdf", encryptPDF(t, buildPDF(t, "Top secret")))
			},
			event:     s3Event("docs", "missing.pdf"),
			wantKind:  KindEncryptedDocument,
			wantStage: StageParse,
			wantIs:    ErrEncryptedDocument,
		},
		{
			name: "owner password only document",
			setup: func(t *testing.T, st *store.MemoryStore) {
				plain := buildPDF(t, "Top secret")
				st.Seed("docs", "missing.pdf", encryptPDFWith(t, plain, model.NewRC4Configuration("", "owner-secret", 40)))
			},
			event:     s3Event("docs", "missing.pdf"),
			wantKind:  KindEncryptedDocument,
			wantStage: StageParse,
			wantIs:    ErrEncryptedDocument,
		},
		{
			name: "write failure",
			setup: func(t *testing.T, st *store.MemoryStore) {
				st.Seed("docs", "missing.pdf", buildPDF(t, "Hello World"))
				st.Deny("docs", "output/converted-missing.pdf.txt")
			},
			event:     s3Event("docs", "missing.pdf"),
			wantKind:  KindWriteFailure,
			wantStage: StageWrite,
			wantIs:    store.ErrAccessDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			tt.setup(t, st)

			res := newTestConverter(st, nil, config.ErrorPolicyAbort).Process(context.Background(), tt.event)

			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.Equal(t, StateFailed, res.State)
			assert.Empty(t, res.Text)
			assert.Equal(t, 0, st.Puts())

			err := res.Err()
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))

			var cerr *ConversionError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.wantStage, cerr.Stage)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
				assert.Equal(t, "docs", cerr.Bucket)
				assert.Equal(t, "missing.pdf", cerr.Key)
			}
		})
	}
}

func TestProcess_EncryptedIsRecorded(t *testing.T) {
	st := store.NewMemoryStore()
	st.Seed("docs", "locked.pdf", encryptPDF(t, buildPDF(t, "Top secret")))
	rec := &fakeRecorder{}

	res := newTestConverter(st, rec, config.ErrorPolicyAbort).Process(context.Background(), s3Event("docs", "locked.pdf"))

	require.Error(t, res.Err())
	require.Len(t, rec.records, 1)
	assert.Equal(t, models.StatusFailed, rec.records[0].Status)
	assert.Equal(t, string(KindEncryptedDocument), rec.records[0].ErrorKind)
	assert.Contains(t, rec.records[0].ErrorDetails, "docs/locked.pdf")
	_, written := st.Object("docs", "output/converted-locked.pdf.txt")
	assert.False(t, written)
}

func TestProcess_LogAndExitPolicy(t *testing.T) {
	st := store.NewMemoryStore()

	res := newTestConverter(st, nil, config.ErrorPolicyLogAndExit).Process(context.Background(), s3Event("docs", "missing.pdf"))

	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.NotNil(t, res.Error)
	assert.Equal(t, KindObjectNotFound, res.Error.Kind)
	assert.NoError(t, res.Err())
}

func TestProcess_RecorderErrorDoesNotChangeOutcome(t *testing.T) {
	st := store.NewMemoryStore()
	st.Seed("docs", "report.pdf", buildPDF(t, "Hello World"))
	rec := &fakeRecorder{err: errors.New("firestore unavailable")}

	res := newTestConverter(st, rec, config.ErrorPolicyAbort).Process(context.Background(), s3Event("docs", "report.pdf"))

	require.NoError(t, res.Err())
	assert.Equal(t, "Hello World", res.Text)
	assert.Len(t, rec.records, 1)
}

func TestNewConverter_MemoryBackend(t *testing.T) {
	f, err := NewConverter(context.Background(), &config.Config{
		StoreBackend: config.BackendMemory,
		ErrorPolicy:  config.ErrorPolicyAbort,
	})
	require.NoError(t, err)

	res := f.Process(context.Background(), s3Event("docs", "report.pdf"))
	assert.Equal(t, KindObjectNotFound, KindOf(res.Err()))
}

func TestNewConverter_InvalidConfig(t *testing.T) {
	_, err := NewConverter(context.Background(), &config.Config{StoreBackend: "tape", ErrorPolicy: config.ErrorPolicyAbort})
	require.Error(t, err)
}

func TestProcess_LogsTextLengthNotBody(t *testing.T) {
	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })

	st := store.NewMemoryStore()
	st.Seed("docs", "report.pdf", buildPDF(t, "Quarterly revenue figures"))

	res := newTestConverter(st, nil, config.ErrorPolicyAbort).Process(context.Background(), s3Event("docs", "report.pdf"))

	require.NoError(t, res.Err())
	assert.Contains(t, logs.String(), `"chars":25`)
	assert.NotContains(t, logs.String(), "Quarterly revenue figures")
}
