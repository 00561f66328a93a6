package extract

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ziadkadry99/docqa/internal/extract/extracttest"
)

func extractBytes(t *testing.T, e *Extractor, data []byte, typ Type) (*Result, error) {
	t.Helper()
	return e.Extract(context.Background(), bytes.NewReader(data), int64(len(data)), typ)
}

func TestTypeFromName(t *testing.T) {
	typ, ok := TypeFromName("Lecture 3.PDF")
	assert.True(t, ok)
	assert.Equal(t, TypePDF, typ)

	_, ok = TypeFromName("notes.doc")
	assert.False(t, ok)
}

func TestDetectType_Sniffing(t *testing.T) {
	typ, err := DetectType("upload", extracttest.PDF("hello"))
	require.NoError(t, err)
	assert.Equal(t, TypePDF, typ)

	_, err = DetectType("image", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	assert.True(t, IsKind(err, KindUnsupported))
}

func TestExtract_PDFPages(t *testing.T) {
	data := extracttest.PDF("Intro to sorting", "Quicksort partitions around a pivot", "Summary")

	res, err := extractBytes(t, &Extractor{}, data, TypePDF)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Units)
	assert.Zero(t, res.Skipped)

	lines := strings.Split(res.Text, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Quicksort partitions around a pivot")
}

func TestExtract_PDFMaxPages(t *testing.T) {
	data := extracttest.PDF("one", "two", "three")

	res, err := extractBytes(t, New(1, nil), data, TypePDF)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Units)
	assert.NotContains(t, res.Text, "two")
}

func TestExtract_PDFWithoutText(t *testing.T) {
	data := extracttest.PDF("", "")

	_, err := extractBytes(t, &Extractor{}, data, TypePDF)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindEmpty))
}

func TestExtract_PDFMissingEOF(t *testing.T) {
	data := extracttest.PDF("truncated upload")
	data = data[:len(data)-len("%%EOF\n")]

	_, err := extractBytes(t, &Extractor{}, data, TypePDF)
	require.Error(t, err)

	var xe *Error
	require.ErrorAs(t, err, &xe)
	assert.Equal(t, KindCorrupted, xe.Kind)
	assert.Contains(t, xe.Msg, "corrupted or incomplete")
}

func TestExtract_NotAPDF(t *testing.T) {
	_, err := extractBytes(t, &Extractor{}, []byte("plain words, no header"), TypePDF)
	assert.True(t, IsKind(err, KindCorrupted))
}

func TestExtract_DOCX(t *testing.T) {
	data := extracttest.DOCX("Chapter 1", "Cells divide by mitosis.")

	res, err := extractBytes(t, &Extractor{}, data, TypeDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1\nCells divide by mitosis.", res.Text)
	assert.Equal(t, 2, res.Units)
}

func TestExtract_DOCXTable(t *testing.T) {
	doc := `<w:document xmlns:w="w"><w:body><w:tbl>` +
		`<w:tr><w:tc><w:p><w:r><w:t>a</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>b</w:t></w:r></w:p></w:tc></w:tr>` +
		`</w:tbl></w:body></w:document>`
	text, _, err := wordText([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "a \tb \t\n", text)
}

func TestExtract_DOCXNotZip(t *testing.T) {
	_, err := extractBytes(t, &Extractor{}, []byte("not a zip"), TypeDOCX)
	assert.True(t, IsKind(err, KindCorrupted))
}

func TestExtract_PPTX(t *testing.T) {
	data := extracttest.PPTX("Welcome\nAgenda", "Photosynthesis")

	res, err := extractBytes(t, &Extractor{}, data, TypePPTX)
	require.NoError(t, err)
	assert.Equal(t, "--- Slide 1 ---\nWelcome\nAgenda\n\n--- Slide 2 ---\nPhotosynthesis", res.Text)
	assert.Equal(t, 2, res.Units)
}

func TestExtract_TXT(t *testing.T) {
	res, err := extractBytes(t, &Extractor{}, []byte("\xEF\xBB\xBFline one\nline two\n"), TypeTXT)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", res.Text)

	_, err = extractBytes(t, &Extractor{}, []byte{0xff, 0xfe, 0x00}, TypeTXT)
	assert.True(t, IsKind(err, KindCorrupted))

	_, err = extractBytes(t, &Extractor{}, []byte("  \n\t "), TypeTXT)
	assert.True(t, IsKind(err, KindEmpty))
}

func TestExtract_CSV(t *testing.T) {
	res, err := extractBytes(t, &Extractor{}, []byte("name,grade\nAda,A\nLinus,B+\n"), TypeCSV)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Units)

	lines := strings.Split(res.Text, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name   grade", lines[0])
	assert.Equal(t, "Linus  B+", lines[2])
}

func TestExtract_XLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Element"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Symbol"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Sodium"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "Na"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := extractBytes(t, &Extractor{}, buf.Bytes(), TypeXLSX)
	require.NoError(t, err)
	assert.Equal(t, "--- Sheet Sheet1 ---\nElement\tSymbol\nSodium\tNa", res.Text)
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := extractBytes(t, &Extractor{}, []byte("x"), Type("doc"))
	assert.True(t, IsKind(err, KindUnsupported))
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Mitochondria are the powerhouse."), 0o644))

	res, typ, err := (&Extractor{}).ExtractFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, TypeTXT, typ)
	assert.Equal(t, "Mitochondria are the powerhouse.", res.Text)
}
