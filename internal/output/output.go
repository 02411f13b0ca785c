// Package output writes a prime stream as fixed-width rows of text.
//
// Each row is fully formatted before it is written, and written with a
// single Write call, so a failing destination never receives half a row
// from this package and rows already written stay intact.
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/roach88/primewheel/internal/generator"
)

// Defaults for print-style generation.
const (
	DefaultCount   = 10000
	DefaultPerLine = 12
)

// maxPrealloc bounds the values a row buffer reserves up front.
const maxPrealloc = 1024

// Row describes a row that has just been written.
type Row struct {
	Index   int      // zero-based row number within this write
	Values  []uint64 // the values in the row; valid only during the callback
	Emitted int      // total values written so far, including this row
}

// Options controls WriteRows.
type Options struct {
	// Count is how many values to write. Zero writes nothing.
	Count int

	// PerLine is the number of values per row. Values < 1 use DefaultPerLine.
	PerLine int

	// OnRow, if set, runs after each row is written. An error stops writing
	// and is returned from WriteRows.
	OnRow func(Row) error
}

// Result summarizes a write.
type Result struct {
	Emitted   int
	Rows      int
	Last      uint64
	Exhausted bool // the source ran out before Count values
}

// FormatRow appends values joined by single spaces and a trailing newline.
func FormatRow(dst []byte, values []uint64) []byte {
	for i, v := range values {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = strconv.AppendUint(dst, v, 10)
	}
	return append(dst, '\n')
}

// WriteRows pulls up to opts.Count values from src and writes them to w in
// rows of opts.PerLine. A trailing short row is written if values remain.
func WriteRows(w io.Writer, src generator.Source, opts Options) (Result, error) {
	perLine := opts.PerLine
	if perLine < 1 {
		perLine = DefaultPerLine
	}

	// A row never holds more than Count values, however wide PerLine is;
	// very wide rows grow on demand.
	size := min(perLine, max(opts.Count, 0), maxPrealloc)

	var (
		res  Result
		row  = make([]uint64, 0, size)
		line = make([]byte, 0, size*21)
	)

	flush := func() error {
		line = FormatRow(line[:0], row)
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("write row %d: %w", res.Rows, err)
		}
		res.Emitted += len(row)
		res.Last = row[len(row)-1]
		res.Rows++
		if opts.OnRow != nil {
			if err := opts.OnRow(Row{Index: res.Rows - 1, Values: row, Emitted: res.Emitted}); err != nil {
				return fmt.Errorf("after row %d: %w", res.Rows-1, err)
			}
		}
		row = row[:0]
		return nil
	}

	for pulled := 0; pulled < opts.Count; pulled++ {
		v, ok := src.Next()
		if !ok {
			res.Exhausted = true
			break
		}
		row = append(row, v)
		if len(row) == perLine {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if len(row) > 0 {
		if err := flush(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// WriteFile writes rows to path. The file is truncated unless appendMode is
// set, and is always closed; a close error is reported alongside any write
// error.
func WriteFile(path string, appendMode bool, src generator.Source, opts Options) (res Result, err error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return Result{}, fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("error closing output", "path", path, "error", closeErr)
			err = errors.Join(err, fmt.Errorf("close output: %w", closeErr))
		}
	}()

	slog.Debug("writing primes", "path", path, "count", opts.Count, "append", appendMode)
	return WriteRows(f, src, opts)
}
