package services

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrMalformedDocument = errors.New("document is not a valid PDF")
	ErrEncryptedDocument = errors.New("document is encrypted")
)

func init() {
	// pdfcpu would otherwise write its config file under the user config dir,
	// which is read-only in the function runtime.
	api.DisableConfigDir()
}

// ParsedDocument is a loaded, unencrypted PDF ready for text extraction.
type ParsedDocument struct {
	Bucket    string
	Key       string
	PageCount int
	// Encrypted is never set by Parse. The extractor still refuses a document
	// built by hand with Encrypted set.
	Encrypted bool

	reader *pdf.Reader
}

// Parser loads PDF bytes and rejects documents that cannot be extracted.
type Parser struct {
	validateStructure bool
}

// NewParser returns a Parser. When validateStructure is set, documents are also
// validated with pdfcpu in relaxed mode.
func NewParser(validateStructure bool) *Parser {
	return &Parser{validateStructure: validateStructure}
}

// Parse returns ErrEncryptedDocument for any password-protected document,
// including ones that open with an empty user password, and ErrMalformedDocument
// for everything else that cannot be read. Errors name the source object.
func (p *Parser) Parse(bucket, key string, data []byte) (*ParsedDocument, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s/%s: %w: empty object", bucket, key, ErrMalformedDocument)
	}

	reader, err := openPDF(data)
	if err != nil {
		if isEncryptionError(err) {
			return nil, fmt.Errorf("the %s/%s file is encrypted: %w: %w", bucket, key, ErrEncryptedDocument, err)
		}
		return nil, fmt.Errorf("%s/%s: %w: %v", bucket, key, ErrMalformedDocument, err)
	}

	if !reader.Trailer().Key("Encrypt").IsNull() {
		return nil, fmt.Errorf("the %s/%s file is encrypted: %w", bucket, key, ErrEncryptedDocument)
	}

	if p.validateStructure {
		if err := validatePDF(data); err != nil {
			return nil, fmt.Errorf("%s/%s: %w: %v", bucket, key, ErrMalformedDocument, err)
		}
	}

	return &ParsedDocument{
		Bucket:    bucket,
		Key:       key,
		PageCount: reader.NumPage(),
		reader:    reader,
	}, nil
}

// openPDF converts reader panics on damaged input into errors.
func openPDF(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader = nil
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func isEncryptionError(err error) bool {
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return true
	}
	// Unsupported encryption schemes are reported as plain errors.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypt") || strings.Contains(msg, "password")
}

func validatePDF(data []byte) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.Validate(bytes.NewReader(data), conf)
}
