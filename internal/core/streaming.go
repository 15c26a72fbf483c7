package core

// streaming.go is the input pipeline in front of the orchestrator:
//
//   - CountingReader: tracks bytes read for the size cap and metrics
//   - BOMSkippingReader: removes the UTF-8 BOM (0xEF 0xBB 0xBF) written by Excel
//   - ReadInput: applies the size cap and rejects invalid UTF-8
//   - ParseCSV: validates the CSV structure of the whole file
//
// The whole file is checked before any row runs, so a structural problem
// aborts the import with zero rows attempted.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader. The first call peeks at three bytes and
// discards them when they form a BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			_, _ = r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// ReadInput reads at most maxBytes from r with the BOM stripped. It fails
// with a ParseError when the input is larger than maxBytes or is not valid
// UTF-8. The returned count is the raw size read, BOM included.
func ReadInput(r io.Reader, maxBytes int64) ([]byte, int64, error) {
	counter := NewCountingReader(io.LimitReader(r, maxBytes+1))
	data, err := io.ReadAll(NewBOMSkippingReader(counter))
	if err != nil {
		return nil, counter.BytesRead, fmt.Errorf("read input: %w", err)
	}
	if counter.BytesRead > maxBytes {
		return nil, counter.BytesRead, &ParseError{Reason: fmt.Sprintf("file too large: exceeds %d bytes", maxBytes)}
	}
	if !utf8.Valid(data) {
		offset, line := firstInvalidUTF8(data)
		return nil, counter.BytesRead, &ParseError{Line: line, Reason: fmt.Sprintf("encoding error: invalid UTF-8 at byte %d", offset)}
	}
	return data, counter.BytesRead, nil
}

// firstInvalidUTF8 returns the offset and 1-based line of the first byte
// that does not start a valid UTF-8 sequence.
func firstInvalidUTF8(data []byte) (offset, line int) {
	line = 1
	for offset < len(data) {
		r, size := utf8.DecodeRune(data[offset:])
		if r == utf8.RuneError && size <= 1 {
			return offset, line
		}
		if r == '\n' {
			line++
		}
		offset += size
	}
	return offset, line
}

// ParseCSV parses the whole input. The first record is the header. Rows may
// be shorter or longer than the header; missing cells read as empty.
func ParseCSV(data []byte) ([][]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Reason: "empty file: no header row"}
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &ParseError{Line: pe.StartLine, Reason: "invalid csv: " + pe.Err.Error()}
		}
		return nil, &ParseError{Reason: "invalid csv: " + err.Error()}
	}
	if len(records) == 0 {
		return nil, &ParseError{Reason: "empty file: no header row"}
	}
	return records, nil
}
