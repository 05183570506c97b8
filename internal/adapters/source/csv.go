package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/pitchlens/internal/domain/dataerr"
	"github.com/okian/pitchlens/internal/domain/introspect"
)

// CSV reads a delimited dataset with a header row. Values stay strings;
// empty cells are reported as missing.
func CSV(name string, r io.Reader, sampleRows int) (*Table, error) {
	input := dataerr.Input(name)
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, dataerr.Missing(input, "line 1", "header")
	}
	if err != nil {
		return nil, csvError(input, err)
	}

	t := newTable(name, sampleRows)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			// CSV exports often carry an index column with an empty header
			h = "index"
		}
		if _, dup := t.index[h]; dup {
			return nil, dataerr.Malformed(input, "line 1", h, "duplicate column")
		}
		t.column(h, introspect.Unknown)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, csvError(input, err)
		}
		if !t.sampling() {
			t.rows++
			continue
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		t.addRow(row)
	}
}

func csvError(input dataerr.Input, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return dataerr.Malformed(input, fmt.Sprintf("line %d", perr.Line), "", perr.Err.Error())
	}
	return dataerr.Internal(err, "read "+string(input))
}
