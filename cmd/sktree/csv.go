package main

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// readMatrix parses numeric CSV rows. With header set the first record is
// skipped.
func readMatrix(r io.Reader, header bool) ([][]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	if header && len(records) > 0 {
		records = records[1:]
	}

	X := make([][]float64, 0, len(records))
	for i, rec := range records {
		row := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "record %d, field %d", i+1, j+1)
			}
			row[j] = v
		}
		X = append(X, row)
	}
	return X, nil
}

// writeInts writes one CSV record per row.
func writeInts(w io.Writer, rows [][]int) error {
	writer := csv.NewWriter(w)
	rec := []string{}
	for _, row := range rows {
		rec = rec[:0]
		for _, v := range row {
			rec = append(rec, strconv.Itoa(v))
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
