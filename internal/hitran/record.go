// Package hitran reads and writes HITRAN 160-character .par line lists.
package hitran

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// PayloadWidth is the width of the pass-through .par record.
const PayloadWidth = 160

// Field names a layout may bind.
const (
	FieldBranch  = "branch"
	FieldJLower  = "j_lower"
	FieldJUpper  = "j_upper"
	FieldKaLower = "ka_lower"
	FieldKaUpper = "ka_upper"
	FieldVUpper  = "v_upper"
	FieldVLower  = "v_lower"
	FieldAir     = "air"
)

// ValidFields are the field names a layout may use.
var ValidFields = map[string]bool{
	FieldBranch:  true,
	FieldJLower:  true,
	FieldJUpper:  true,
	FieldKaLower: true,
	FieldKaUpper: true,
	FieldVUpper:  true,
	FieldVLower:  true,
	FieldAir:     true,
}

// ErrMalformedRecord marks a line that cannot be parsed.
var ErrMalformedRecord = errors.New("malformed record")

// Span is a 0-indexed, end-exclusive column range.
type Span struct {
	Start int
	End   int
}

// Layout maps field names to the columns they occupy.
type Layout map[string]Span

// Width is the minimum line width the layout needs.
func (l Layout) Width() int {
	w := PayloadWidth
	for _, s := range l {
		if s.End > w {
			w = s.End
		}
	}
	return w
}

// Fields returns the bound field names in column order.
func (l Layout) Fields() []string {
	names := make([]string, 0, len(l))
	for n := range l {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if l[names[i]].Start != l[names[j]].Start {
			return l[names[i]].Start < l[names[j]].Start
		}
		return names[i] < names[j]
	})
	return names
}

// LineRecord is one parsed transition. Fields not bound by the layout are zero.
type LineRecord struct {
	Line          int
	Raw           string
	Branch        byte
	JLower        int
	JUpper        int
	KaLower       int
	KaUpper       int
	VUpper        int
	VLower        int
	AirBroadening float64
}

// Payload is the verbatim 160-character pass-through span.
func (r LineRecord) Payload() string {
	return r.Raw[:PayloadWidth]
}

// ParseLine extracts the layout's fields from one line. lineNo is 1-based and
// only used in errors.
func ParseLine(lineNo int, text string, layout Layout) (LineRecord, error) {
	text = strings.TrimRight(text, "\r\n")
	if w := layout.Width(); len(text) < w {
		return LineRecord{}, errors.WithHintf(
			errors.Wrapf(ErrMalformedRecord, "line %d: %d characters, need at least %d", lineNo, len(text), w),
			"input must be a HITRAN %d-character .par file", PayloadWidth)
	}

	rec := LineRecord{Line: lineNo, Raw: text}
	for _, name := range layout.Fields() {
		span := layout[name]
		raw := strings.TrimSpace(text[span.Start:span.End])
		if name == FieldBranch {
			rec.Branch = ' '
			if raw != "" {
				rec.Branch = raw[0]
			}
			continue
		}
		if name == FieldAir {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return LineRecord{}, fieldErr(lineNo, name, span, raw)
			}
			rec.AirBroadening = v
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return LineRecord{}, fieldErr(lineNo, name, span, raw)
		}
		switch name {
		case FieldJLower:
			rec.JLower = n
		case FieldJUpper:
			rec.JUpper = n
		case FieldKaLower:
			rec.KaLower = n
		case FieldKaUpper:
			rec.KaUpper = n
		case FieldVUpper:
			rec.VUpper = n
		case FieldVLower:
			rec.VLower = n
		}
	}
	return rec, nil
}

func fieldErr(lineNo int, name string, span Span, raw string) error {
	return errors.Wrapf(ErrMalformedRecord, "line %d: field %s (columns %d-%d) is %q, not a number",
		lineNo, name, span.Start, span.End, raw)
}

// Parse reads every non-blank line of r. The first malformed line aborts the read.
func Parse(r io.Reader, layout Layout) ([]LineRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var records []LineRecord
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := ParseLine(lineNo, text, layout)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read line %d", lineNo+1)
	}
	return records, nil
}
