package extract

import (
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func extractTXT(r io.ReaderAt, size int64) (*Result, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, corrupted(TypeTXT, "reading text file", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, corrupted(TypeTXT, "text file is not valid UTF-8", nil)
	}
	return &Result{Text: string(data), Units: bytes.Count(data, []byte("\n")) + 1}, nil
}
