package record

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"prem-rta/internal/prem"
)

// Writer appends records to a stream. It is safe for concurrent use; the
// lock only covers the write of one line.
type Writer struct {
	mu    sync.Mutex
	w     *bufio.Writer
	c     io.Closer
	lines int
}

func NewWriter(w io.Writer) *Writer {
	wr := &Writer{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		wr.c = c
	}
	return wr
}

// Create opens path for writing, creating parent directories.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create record directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create record file: %w", err)
	}
	return NewWriter(f), nil
}

func (w *Writer) Write(sys *prem.System) error {
	line := Encode(sys)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.WriteString(line + "\n"); err != nil {
		return err
	}
	w.lines++
	return nil
}

func (w *Writer) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Flush()
}

func (w *Writer) Close() error {
	err := w.Flush()
	if w.c != nil {
		if cerr := w.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader reads records line by line.
type Reader struct {
	r    *csv.Reader
	line int
}

func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Reader{r: cr}
}

// Next returns the next system, or io.EOF at the end of the stream.
func (r *Reader) Next() (*prem.System, error) {
	fields, err := r.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	r.line++
	sys, err := decodeFields(fields)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", r.line, err)
	}
	return sys, nil
}

// ReadAll decodes every record of the stream.
func ReadAll(r io.Reader) ([]*prem.System, error) {
	rd := NewReader(r)
	var out []*prem.System
	for {
		sys, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, sys)
	}
}

// ReadFile decodes every record of the file at path.
func ReadFile(path string) ([]*prem.System, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file: %w", err)
	}
	defer f.Close()
	return ReadAll(f)
}
