package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			expected: "hello,world",
		},
		{
			name:     "file without BOM",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewBOMSkippingReader(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input))

	buf := make([]byte, 100)
	totalRead := 0
	for {
		n, err := reader.Read(buf)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if totalRead != len(input) {
		t.Errorf("total read = %d, want %d", totalRead, len(input))
	}
	if reader.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead, len(input))
	}
}

func TestReadInput(t *testing.T) {
	t.Run("strips BOM and counts raw bytes", func(t *testing.T) {
		input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Titulo\nA\n")...)
		data, n, err := ReadInput(bytes.NewReader(input), 1024)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "Titulo\nA\n" {
			t.Errorf("data = %q", data)
		}
		if n != int64(len(input)) {
			t.Errorf("bytes read = %d, want %d", n, len(input))
		}
	})

	t.Run("exactly at the limit is accepted", func(t *testing.T) {
		if _, _, err := ReadInput(strings.NewReader("abcde"), 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("over the limit", func(t *testing.T) {
		_, _, err := ReadInput(strings.NewReader("abcdef"), 5)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ParseError, got %v", err)
		}
		if MapError(err).Code != "FILE001" {
			t.Errorf("code = %s, want FILE001", MapError(err).Code)
		}
	})

	t.Run("invalid UTF-8 reports the line", func(t *testing.T) {
		input := []byte("Nome\nAna\nJo\xe3o\n")
		_, _, err := ReadInput(bytes.NewReader(input), 1024)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ParseError, got %v", err)
		}
		if pe.Line != 3 {
			t.Errorf("line = %d, want 3", pe.Line)
		}
		if MapError(err).Code != "FILE003" {
			t.Errorf("code = %s, want FILE003", MapError(err).Code)
		}
	})

	t.Run("reader failure is not a parse error", func(t *testing.T) {
		boom := errors.New("disk gone")
		_, _, err := ReadInput(io.MultiReader(strings.NewReader("abc"), errReader{boom}), 1024)
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped reader error, got %v", err)
		}
		var pe *ParseError
		if errors.As(err, &pe) {
			t.Error("reader failure should not be a ParseError")
		}
	})
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestParseCSV(t *testing.T) {
	t.Run("ragged rows are allowed", func(t *testing.T) {
		records, err := ParseCSV([]byte("a,b,c\n1\n1,2,3,4\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("records = %d, want 3", len(records))
		}
		if len(records[1]) != 1 || len(records[2]) != 4 {
			t.Errorf("unexpected row widths: %v", records)
		}
	})

	t.Run("quoted delimiter and newline", func(t *testing.T) {
		records, err := ParseCSV([]byte("Nome,Equipe\nA,\"Ana; Bia,\nCarla\"\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := records[1][1]; got != "Ana; Bia,\nCarla" {
			t.Errorf("cell = %q", got)
		}
	})

	for _, input := range []string{"", "   \n\n"} {
		_, err := ParseCSV([]byte(input))
		if MapError(err).Code != "FILE005" {
			t.Errorf("ParseCSV(%q) code = %s, want FILE005", input, MapError(err).Code)
		}
	}

	t.Run("broken quotes", func(t *testing.T) {
		_, err := ParseCSV([]byte("a,b\n1,2\n3,\"4\n"))
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ParseError, got %v", err)
		}
		if pe.Line != 3 {
			t.Errorf("line = %d, want 3", pe.Line)
		}
		if MapError(err).Code != "FILE002" {
			t.Errorf("code = %s, want FILE002", MapError(err).Code)
		}
	})
}
