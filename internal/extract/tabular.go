package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// extractCSV renders the file as an aligned text table.
func extractCSV(r io.ReaderAt, size int64) (*Result, error) {
	cr := csv.NewReader(io.NewSectionReader(r, 0, size))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	res := &Result{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, corrupted(TypeCSV, "malformed CSV", err)
		}
		for i, field := range record {
			if !utf8.ValidString(field) {
				return nil, corrupted(TypeCSV, "CSV is not valid UTF-8", nil)
			}
			record[i] = strings.ReplaceAll(field, "\t", " ")
		}
		fmt.Fprintln(tw, strings.Join(record, "\t"))
		res.Units++
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}
	res.Text = sb.String()
	return res, nil
}

// extractXLSX renders every sheet under a "--- Sheet name ---" marker with
// tab-separated cells. Unreadable sheets are skipped.
func extractXLSX(ctx context.Context, r io.ReaderAt, size int64, log *zap.Logger) (*Result, error) {
	f, err := excelize.OpenReader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, corrupted(TypeXLSX, "could not open workbook", err)
	}
	defer f.Close()

	res := &Result{}
	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Units++

		rows, err := f.GetRows(sheet)
		if err != nil {
			res.Skipped++
			log.Warn("skipping unreadable sheet", zap.String("sheet", sheet), zap.Error(err))
			continue
		}

		fmt.Fprintf(&sb, "\n--- Sheet %s ---\n", sheet)
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	res.Text = sb.String()
	return res, nil
}
