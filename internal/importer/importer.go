// Package importer extracts (date, show time) rows from uploaded schedule
// files. It only locates the relevant columns and returns raw cell values;
// validation and time normalization belong to the caller, which decides what
// to skip and what to report.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("importer: unsupported file format")

// ErrMissingColumns is returned when the header row lacks a recognizable
// date or show time column.
var ErrMissingColumns = errors.New("importer: header is missing date or show time column")

// Row is one schedule entry as found in the file, untrimmed of meaning:
// Date should be YYYY-MM-DD and ShowTime any accepted time spelling, but
// the importer does not enforce either.
type Row struct {
	Date     string
	ShowTime string
}

// Column header spellings accepted for each field. Matching is
// case-insensitive, so each entry is stored lowercase.
var (
	dateAliases = map[string]bool{"date": true}
	timeAliases = map[string]bool{
		"showtime":  true,
		"show_time": true,
		"show time": true,
		"time":      true,
		"label":     true,
		"name":      true,
	}
)

func findColumns(header []string) (dateIdx, timeIdx int, ok bool) {
	dateIdx, timeIdx = -1, -1
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if dateIdx < 0 && dateAliases[key] {
			dateIdx = i
		} else if timeIdx < 0 && timeAliases[key] {
			timeIdx = i
		}
	}
	return dateIdx, timeIdx, dateIdx >= 0 && timeIdx >= 0
}

func rowsFromRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, ErrMissingColumns
	}
	dateIdx, timeIdx, ok := findColumns(records[0])
	if !ok {
		return nil, ErrMissingColumns
	}
	var rows []Row
	for _, rec := range records[1:] {
		var r Row
		if dateIdx < len(rec) {
			r.Date = strings.TrimSpace(rec[dateIdx])
		}
		if timeIdx < len(rec) {
			r.ShowTime = strings.TrimSpace(rec[timeIdx])
		}
		if r.Date == "" && r.ShowTime == "" {
			continue // blank line
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// ParseCSV reads a comma-separated schedule with a header row.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // schedules exported by hand are often ragged
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("importer: read csv: %w", err)
	}
	return rowsFromRecords(records)
}

// ParseXLSX reads the first sheet of an Excel workbook with a header row.
// Cells come back as displayed strings, so Excel time cells arrive as the
// fractional serial values the normalizer understands.
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("importer: open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrMissingColumns
	}
	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("importer: read xlsx rows: %w", err)
	}
	return rowsFromRecords(records)
}

// FromUpload dispatches on the uploaded filename's extension.
func FromUpload(filename string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}
