package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/species-atlas/internal/domain"
)

// Kind distinguishes the two upload families.
type Kind int

const (
	KindUnknown Kind = iota
	KindTabular
	KindBoundary
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// KindForFilename classifies an upload by extension, case-insensitive.
// Anything outside csv/xlsx/xls/kml/kmz is ErrUnsupportedFile.
func KindForFilename(name string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx", ".xls":
		return KindTabular, nil
	case ".kml", ".kmz":
		return KindBoundary, nil
	}
	return KindUnknown, fmt.Errorf("%w: %s", domain.ErrUnsupportedFile, name)
}

// Tabular decodes and normalizes a tabular upload in one step.
func Tabular(raw []byte, filename string) ([]domain.Observation, []domain.RowError, error) {
	rows, err := DecodeTable(raw, filename)
	if err != nil {
		return nil, nil, err
	}
	return Normalize(rows)
}

// DecodeTable reads an uploaded spreadsheet into raw string rows, dispatching
// on the file extension. Excel files use their first sheet.
func DecodeTable(raw []byte, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return decodeCSV(raw)
	case ".xlsx":
		return decodeXLSX(raw)
	case ".xls":
		return decodeXLS(raw)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFile, filename)
}

func decodeCSV(raw []byte) ([][]string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	r := csv.NewReader(bytes.NewReader(sanitizeUTF8(raw)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func decodeXLSX(raw []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func decodeXLS(raw []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(raw), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("xls workbook has no sheets")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement rune so
// the CSV reader never chokes on mixed-encoding exports.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.Bytes()
}
