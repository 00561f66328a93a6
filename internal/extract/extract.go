// Package extract pulls plain text out of uploaded study documents.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docqa/internal/logging"
)

// Type is a supported document format.
type Type string

const (
	TypePDF  Type = "pdf"
	TypeDOCX Type = "docx"
	TypePPTX Type = "pptx"
	TypeTXT  Type = "txt"
	TypeCSV  Type = "csv"
	TypeXLSX Type = "xlsx"
)

var mimeTypes = map[string]Type{
	"application/pdf": TypePDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   TypeDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": TypePPTX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         TypeXLSX,
	"text/csv":   TypeCSV,
	"text/plain": TypeTXT,
}

// Tabular reports whether t holds row-oriented data.
func (t Type) Tabular() bool { return t == TypeCSV || t == TypeXLSX }

// TypeFromName maps a file name's extension to a Type.
func TypeFromName(name string) (Type, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch Type(ext) {
	case TypePDF, TypeDOCX, TypePPTX, TypeTXT, TypeCSV, TypeXLSX:
		return Type(ext), true
	}
	return "", false
}

// DetectType resolves the type from the file name, falling back to
// sniffing the leading bytes.
func DetectType(name string, head []byte) (Type, error) {
	if t, ok := TypeFromName(name); ok {
		return t, nil
	}
	m := mimetype.Detect(head)
	for mt := m; mt != nil; mt = mt.Parent() {
		// Is ignores parameters such as "; charset=utf-8".
		for mimeName, t := range mimeTypes {
			if mt.Is(mimeName) {
				return t, nil
			}
		}
	}
	return "", &Error{Kind: KindUnsupported, Msg: fmt.Sprintf("unsupported file type %q (%s)", filepath.Ext(name), m.String())}
}

// Result is the outcome of a successful extraction.
type Result struct {
	Text string
	// Units is the number of pages, slides, sheets or lines read.
	Units int
	// Skipped counts units that could not be read and were left out.
	Skipped int
}

// Extractor converts documents to text. The zero value is usable.
type Extractor struct {
	// MaxPages limits how many PDF pages are read; 0 reads all.
	MaxPages int
	Logger   *zap.Logger
}

// New creates an Extractor.
func New(maxPages int, logger *zap.Logger) *Extractor {
	return &Extractor{MaxPages: maxPages, Logger: logger}
}

// Extract reads the document in r as type t. It fails with *Error when the
// type is unsupported, the container is corrupted, or no text remains.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64, t Type) (*Result, error) {
	log := logging.OrNop(e.Logger).With(zap.String("type", string(t)))

	var (
		res *Result
		err error
	)
	switch t {
	case TypePDF:
		res, err = e.extractPDF(ctx, r, size, log)
	case TypeDOCX:
		res, err = extractDOCX(r, size)
	case TypePPTX:
		res, err = extractPPTX(ctx, r, size, log)
	case TypeTXT:
		res, err = extractTXT(r, size)
	case TypeCSV:
		res, err = extractCSV(r, size)
	case TypeXLSX:
		res, err = extractXLSX(ctx, r, size, log)
	default:
		return nil, &Error{Kind: KindUnsupported, Type: t, Msg: fmt.Sprintf("unsupported file type %q", t)}
	}
	if err != nil {
		return nil, err
	}

	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" {
		return nil, &Error{Kind: KindEmpty, Type: t, Msg: "no text could be extracted from the document"}
	}
	if res.Skipped > 0 {
		log.Warn("skipped unreadable units", zap.Int("skipped", res.Skipped), zap.Int("units", res.Units))
	}
	return res, nil
}

// ExtractFile opens path and extracts it using the type implied by its name.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*Result, Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}

	head := make([]byte, 3072)
	n, _ := f.ReadAt(head, 0)
	t, err := DetectType(path, head[:n])
	if err != nil {
		return nil, "", err
	}

	res, err := e.Extract(ctx, f, info.Size(), t)
	return res, t, err
}

// Kind classifies extraction failures.
type Kind string

const (
	KindEmpty       Kind = "empty"
	KindCorrupted   Kind = "corrupted"
	KindUnsupported Kind = "unsupported"
)

// Error reports a document that cannot be used.
type Error struct {
	Kind Kind
	Type Type
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %v", e.Msg, e.Err)
	}
	return "extract: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var xe *Error
	return errors.As(err, &xe) && xe.Kind == kind
}

func corrupted(t Type, msg string, err error) *Error {
	return &Error{Kind: KindCorrupted, Type: t, Msg: msg, Err: err}
}
