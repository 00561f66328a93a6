package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

const pdfProgressEvery = 50

func (e *Extractor) extractPDF(ctx context.Context, r io.ReaderAt, size int64, log *zap.Logger) (res *Result, err error) {
	reader, err := openPDF(r, size)
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	limit := total
	if e.MaxPages > 0 && e.MaxPages < limit {
		limit = e.MaxPages
	}
	if total > pdfProgressEvery {
		log.Info("extracting large pdf", zap.Int("pages", total), zap.Int("reading", limit))
	}

	res = &Result{}
	pages := make([]string, 0, limit)
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := pageText(reader, i)
		res.Units++
		if err != nil {
			res.Skipped++
			log.Warn("skipping unreadable page", zap.Int("page", i), zap.Error(err))
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}

		if total > pdfProgressEvery && i%pdfProgressEvery == 0 {
			log.Info("pdf extraction progress", zap.Int("page", i), zap.Int("of", limit))
		}
	}

	res.Text = strings.Join(pages, "\n")
	return res, nil
}

// openPDF parses the cross-reference table. The parser panics on some
// malformed inputs, so those are reported as corruption too.
func openPDF(r io.ReaderAt, size int64) (reader *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			reader = nil
			err = corrupted(TypePDF, "PDF appears to be corrupted or incomplete", fmt.Errorf("%v", p))
		}
	}()

	reader, err = pdf.NewReader(r, size)
	if err != nil {
		if strings.Contains(err.Error(), "EOF") {
			return nil, corrupted(TypePDF, "PDF appears to be corrupted or incomplete", err)
		}
		return nil, corrupted(TypePDF, "could not open PDF", err)
	}
	return reader, nil
}

func pageText(reader *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("page %d: %v", n, p)
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", n)
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", n, err)
	}
	return strings.TrimSpace(text), nil
}
