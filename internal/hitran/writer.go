package hitran

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Row is one output line: the pass-through payload and the appended fields.
type Row struct {
	Payload string
	Fields  []string
}

// String renders the row as "<payload>, f1, f2, ... \n".
func (r Row) String() string {
	var b strings.Builder
	b.Grow(len(r.Payload) + 8*len(r.Fields) + 2)
	b.WriteString(r.Payload)
	for _, f := range r.Fields {
		b.WriteString(", ")
		b.WriteString(f)
	}
	b.WriteString(" \n")
	return b.String()
}

// Code formats a code or literal into the 3-character right-aligned field.
func Code(s string) string {
	return fmt.Sprintf("%3s", s)
}

// Writer writes rows to an underlying stream.
type Writer struct {
	w    *bufio.Writer
	rows int
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one row.
func (w *Writer) Write(r Row) error {
	if _, err := w.w.WriteString(r.String()); err != nil {
		return err
	}
	w.rows++
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int { return w.rows }

// Flush flushes buffered rows.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
