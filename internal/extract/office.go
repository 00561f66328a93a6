package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

func openZip(r io.ReaderAt, size int64, t Type) (*zip.Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, corrupted(t, "document container is not a valid archive", err)
	}
	return zr, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// extractDOCX reads word/document.xml in document order. Paragraphs end
// with a newline; table cells are separated by tabs and rows by newlines.
func extractDOCX(r io.ReaderAt, size int64) (*Result, error) {
	zr, err := openZip(r, size, TypeDOCX)
	if err != nil {
		return nil, err
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return nil, corrupted(TypeDOCX, "word/document.xml not found", nil)
	}

	data, err := readZipFile(body)
	if err != nil {
		return nil, corrupted(TypeDOCX, "reading word/document.xml", err)
	}

	text, paragraphs, err := wordText(data)
	if err != nil {
		return nil, corrupted(TypeDOCX, "parsing word/document.xml", err)
	}
	return &Result{Text: text, Units: paragraphs}, nil
}

func wordText(data []byte) (string, int, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		sb         strings.Builder
		inText     bool
		tableDepth int
		paragraphs int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			case "tbl":
				tableDepth++
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs++
				if tableDepth == 0 {
					sb.WriteByte('\n')
				} else {
					sb.WriteByte(' ')
				}
			case "tc":
				sb.WriteByte('\t')
			case "tr":
				sb.WriteByte('\n')
			case "tbl":
				tableDepth--
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	return sb.String(), paragraphs, nil
}

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX reads every slide in numeric order. Each slide's text is
// preceded by a "--- Slide N ---" marker. Unreadable slides are skipped.
func extractPPTX(ctx context.Context, r io.ReaderAt, size int64, log *zap.Logger) (*Result, error) {
	zr, err := openZip(r, size, TypePPTX)
	if err != nil {
		return nil, err
	}

	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n: n, f: f})
	}
	if len(slides) == 0 {
		return nil, corrupted(TypePPTX, "presentation contains no slides", nil)
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	res := &Result{}
	var sb strings.Builder
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Units++

		data, err := readZipFile(s.f)
		if err != nil {
			res.Skipped++
			log.Warn("skipping unreadable slide", zap.Int("slide", s.n), zap.Error(err))
			continue
		}
		text, err := drawingText(data)
		if err != nil {
			res.Skipped++
			log.Warn("skipping unreadable slide", zap.Int("slide", s.n), zap.Error(err))
			continue
		}

		fmt.Fprintf(&sb, "\n--- Slide %d ---\n", s.n)
		sb.WriteString(text)
	}
	res.Text = sb.String()
	return res, nil
}

// drawingText collects a:t runs, one line per a:p paragraph.
func drawingText(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		sb     strings.Builder
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					sb.WriteString(s)
					sb.WriteByte('\n')
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(el)
			}
		}
	}
	return sb.String(), nil
}
