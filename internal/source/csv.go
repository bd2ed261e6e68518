package source

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"graphjson/internal/coerce"
	"graphjson/internal/safeio"
)

const utf8BOM = "\ufeff"

// CSV reads a header row followed by data rows. Each row becomes a Raw keyed
// by header name. Short rows leave their trailing keys absent and extra cells
// beyond the header are ignored. Blank lines are skipped.
func CSV(r io.Reader) ([]coerce.Raw, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var rows []coerce.Raw
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(coerce.Raw, len(header))
		for i, name := range header {
			if i >= len(rec) {
				break
			}
			row[name] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CSVFile opens path under root and reads it with CSV.
func CSVFile(root *safeio.Root, path string) ([]coerce.Raw, error) {
	f, err := root.Open(path)
	if err != nil {
		return nil, unavailable("open", path, err)
	}
	defer f.Close()
	rows, err := CSV(f)
	if err != nil {
		return nil, unavailable("parse", path, err)
	}
	return rows, nil
}
