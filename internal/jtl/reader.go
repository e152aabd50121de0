// Package jtl reads JMeter JTL result logs in their CSV form.
package jtl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrSourceNotFound indicates the results file does not exist.
var ErrSourceNotFound = errors.New("results file not found")

// Column names as written by JMeter's CSV result collector.
const (
	colTimestamp    = "timeStamp"
	colElapsed      = "elapsed"
	colLabel        = "label"
	colResponseCode = "responseCode"
	colSuccess      = "success"
)

// columns maps the header row to record indexes. A column absent from the
// header resolves every row's field to the empty string.
type columns struct {
	timestamp    int
	elapsed      int
	label        int
	responseCode int
	success      int
}

func mapColumns(header []string) columns {
	cols := columns{timestamp: -1, elapsed: -1, label: -1, responseCode: -1, success: -1}
	for i, name := range header {
		switch name {
		case colTimestamp:
			cols.timestamp = i
		case colElapsed:
			cols.elapsed = i
		case colLabel:
			cols.label = i
		case colResponseCode:
			cols.responseCode = i
		case colSuccess:
			cols.success = i
		}
	}
	return cols
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// Scan reads samples from r, invoking fn for each row in file order.
// Unknown columns are ignored, short rows are padded with empty fields,
// and malformed numerics coerce to zero. Scan stops at the first error
// returned by fn.
func Scan(r io.Reader, fn func(Sample) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	cols := mapColumns(header)

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}

		sample := Sample{
			Timestamp:    ParseInt(field(record, cols.timestamp)),
			Elapsed:      ParseInt(field(record, cols.elapsed)),
			Label:        field(record, cols.label),
			ResponseCode: field(record, cols.responseCode),
			Success:      ParseBool(field(record, cols.success)),
		}
		if err := fn(sample); err != nil {
			return err
		}
	}
}

// ReadAll reads every sample from r into memory.
func ReadAll(r io.Reader) ([]Sample, error) {
	var samples []Sample
	err := Scan(r, func(s Sample) error {
		samples = append(samples, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// ScanFile streams samples from the file at path. Files ending in .gz are
// decompressed on the fly. A missing file yields ErrSourceNotFound.
func ScanFile(path string, fn func(Sample) error) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrSourceNotFound)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer func() { _ = gz.Close() }()
		src = gz
	}

	return Scan(src, fn)
}

// ReadFile reads every sample from the file at path.
func ReadFile(path string) ([]Sample, error) {
	var samples []Sample
	err := ScanFile(path, func(s Sample) error {
		samples = append(samples, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}
