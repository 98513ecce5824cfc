package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/pdftotext/internal/store"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassifyGCSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "object missing", err: storage.ErrObjectNotExist, want: store.ErrObjectNotFound},
		{name: "bucket missing", err: fmt.Errorf("reader: %w", storage.ErrBucketNotExist), want: store.ErrObjectNotFound},
		{name: "forbidden", err: &googleapi.Error{Code: http.StatusForbidden}, want: store.ErrAccessDenied},
		{name: "unauthorized", err: &googleapi.Error{Code: http.StatusUnauthorized}, want: store.ErrAccessDenied},
		{name: "server error", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, want: store.ErrStoreUnavailable},
		{name: "transport", err: errors.New("connection reset by peer"), want: store.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyGCSError("put", "docs", "output/converted-report.pdf.txt", tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "gs://docs/output/converted-report.pdf.txt")
		})
	}
}
