package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/pdftotext/internal/config"
	"github.com/Lllllllleong/pdftotext/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	converterInstance *services.ConverterFunction
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ConvertPDFToText", convertPDFToText)
	functions.HTTP("HandleConvertPDF", handleConvertPDF)
}

// main is required by the Go Functions Framework.
func main() {}

func initConverter() error {
	once.Do(func() {
		var cfg *config.Config
		cfg, initErr = config.Load()
		if initErr != nil {
			initErr = fmt.Errorf("failed to load configuration: %w", initErr)
			return
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
		converterInstance, initErr = services.NewConverter(context.Background(), cfg)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
	}
	return initErr
}

// convertPDFToText is the CloudEvent entry point. Returning an error marks the
// invocation as failed so the platform can retry or dead-letter it.
func convertPDFToText(ctx context.Context, e cloudevents.Event) error {
	if err := initConverter(); err != nil {
		return err
	}

	res := converterInstance.Process(ctx, e.Data())
	if res.Outcome == services.OutcomeFailed && res.Err() == nil {
		slog.Warn("Conversion failed; completing invocation under log-and-exit policy.", "eventId", e.ID(), "error", res.Error)
	}
	return res.Err()
}

// handleConvertPDF is the HTTP entry point. The body is the same notification
// payload; the response body is the extracted text.
func handleConvertPDF(w http.ResponseWriter, r *http.Request) {
	if err := initConverter(); err != nil {
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Warn("Could not read request body", "error", err)
		http.Error(w, "Bad Request: could not read body", http.StatusBadRequest)
		return
	}

	res := converterInstance.Process(r.Context(), body)
	switch res.Outcome {
	case services.OutcomeNoOp:
		w.WriteHeader(http.StatusNoContent)
	case services.OutcomeFailed:
		if err := res.Err(); err != nil {
			// The specific error is already logged inside Process.
			http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
			return
		}
		slog.Warn("Conversion failed; completing request under log-and-exit policy.", "error", res.Error)
		w.WriteHeader(http.StatusOK)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := io.WriteString(w, res.Text); err != nil {
			slog.Error("Failed to write response", "error", err, "bucket", res.Record.Bucket, "key", res.Record.Key)
		}
	}
}
