package repository

import (
	"fmt"
	"io"

	"github.com/okian/pitchlens/internal/domain/model"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// Codec resolves a configured compression name.
func Codec(name string) (compress.Codec, error) {
	switch name {
	case "", "snappy":
		return &parquet.Snappy, nil
	case "zstd":
		return &parquet.Zstd, nil
	case "gzip":
		return &parquet.Gzip, nil
	case "none":
		return &parquet.Uncompressed, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// EnrichedWriter streams enriched records into a Parquet file.
type EnrichedWriter struct {
	w    *parquet.GenericWriter[model.EnrichedRecord]
	rows int64
}

// NewEnrichedWriter writes to out using the named compression.
func NewEnrichedWriter(out io.Writer, compression string) (*EnrichedWriter, error) {
	codec, err := Codec(compression)
	if err != nil {
		return nil, err
	}
	return &EnrichedWriter{
		w: parquet.NewGenericWriter[model.EnrichedRecord](out, parquet.Compression(codec)),
	}, nil
}

// Write appends records.
func (e *EnrichedWriter) Write(records []model.EnrichedRecord) error {
	if len(records) == 0 {
		return nil
	}
	n, err := e.w.Write(records)
	e.rows += int64(n)
	if err != nil {
		return fmt.Errorf("write enriched rows: %w", err)
	}
	return nil
}

// Rows returns the number of records written.
func (e *EnrichedWriter) Rows() int64 { return e.rows }

// Close flushes the footer. It does not close the underlying writer.
func (e *EnrichedWriter) Close() error {
	if err := e.w.Close(); err != nil {
		return fmt.Errorf("close enriched file: %w", err)
	}
	return nil
}

// ReadEnriched streams the records of an enriched Parquet file to fn in
// batches of at most batch records. The slice passed to fn is reused.
func ReadEnriched(in io.ReaderAt, batch int, fn func([]model.EnrichedRecord) error) (int64, error) {
	if batch <= 0 {
		batch = 1024
	}
	r := parquet.NewGenericReader[model.EnrichedRecord](in)
	defer r.Close()

	buf := make([]model.EnrichedRecord, batch)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if ferr := fn(buf[:n]); ferr != nil {
				return total, ferr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("read enriched rows: %w", err)
		}
	}
}
