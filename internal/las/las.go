// Package las reads LAS 2.0 well-log files.
package las

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	// UnknownWell is used when the ~W section carries no WELL value.
	UnknownWell = "Unknown Well"

	defaultNull   = -999.25
	sentinelLimit = 1e30
	maxLineBytes  = 4 * 1024 * 1024
)

var (
	ErrNoCurves  = errors.New("las: no curves defined")
	ErrMalformed = errors.New("las: malformed file")
)

// HeaderItem is one MNEM.UNIT VALUE : DESCRIPTION line.
type HeaderItem struct {
	Mnemonic    string
	Unit        string
	Value       string
	Description string
}

// File is a parsed LAS document. Data is row-major; column 0 is the index curve.
type File struct {
	Version []HeaderItem
	Well    []HeaderItem
	Curves  []HeaderItem
	Data    [][]float64
	Null    float64
}

// Point is a single (depth, curve) sample. Value is nil for null samples.
type Point struct {
	Curve string
	Depth float64
	Value *float64
}

// Parse reads the whole file including the ~A data section.
func Parse(r io.Reader) (*File, error) {
	return parse(r, true)
}

// ParseHeader reads the header sections and stops at ~A.
func ParseHeader(r io.Reader) (*File, error) {
	return parse(r, false)
}

func parse(r io.Reader, withData bool) (*File, error) {
	f := &File{Null: defaultNull}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	section := byte(0)
	var tokens []string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line[0] == '~' {
			if len(line) < 2 {
				return nil, fmt.Errorf("%w: empty section marker on line %d", ErrMalformed, lineNo)
			}
			section = upper(line[1])
			if section == 'A' && !withData {
				break
			}
			continue
		}
		switch section {
		case 'V', 'W', 'C':
			item, ok := parseHeaderLine(line)
			if !ok {
				continue
			}
			switch section {
			case 'V':
				f.Version = append(f.Version, item)
			case 'W':
				f.Well = append(f.Well, item)
			case 'C':
				f.Curves = append(f.Curves, item)
			}
		case 'A':
			tokens = append(tokens, strings.Fields(line)...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if item, ok := lookup(f.Well, "NULL"); ok {
		if v, err := strconv.ParseFloat(item.Value, 64); err == nil {
			f.Null = v
		}
	}
	if !withData {
		return f, nil
	}
	if len(f.Curves) == 0 {
		return nil, ErrNoCurves
	}

	width := len(f.Curves)
	for start := 0; start+width <= len(tokens); start += width {
		row := make([]float64, width)
		for i := 0; i < width; i++ {
			v, err := strconv.ParseFloat(tokens[start+i], 64)
			if err != nil {
				v = math.NaN()
			}
			row[i] = v
		}
		f.Data = append(f.Data, row)
	}
	return f, nil
}

// parseHeaderLine splits MNEM.UNIT VALUE : DESCRIPTION. The last colon
// separates the description so values may contain times.
func parseHeaderLine(line string) (HeaderItem, bool) {
	dot := strings.IndexByte(line, '.')
	if dot < 0 {
		return HeaderItem{}, false
	}
	item := HeaderItem{Mnemonic: strings.TrimSpace(line[:dot])}
	if item.Mnemonic == "" {
		return HeaderItem{}, false
	}
	rest := line[dot+1:]
	unitEnd := strings.IndexAny(rest, " \t")
	if unitEnd < 0 {
		unitEnd = len(rest)
	}
	item.Unit = rest[:unitEnd]
	rest = rest[unitEnd:]
	if colon := strings.LastIndexByte(rest, ':'); colon >= 0 {
		item.Description = strings.TrimSpace(rest[colon+1:])
		rest = rest[:colon]
	} else if colon := strings.LastIndexByte(item.Unit, ':'); colon >= 0 {
		item.Unit = item.Unit[:colon]
	}
	item.Value = strings.TrimSpace(rest)
	return item, true
}

// WellName returns the WELL header value or UnknownWell.
func (f *File) WellName() string {
	if item, ok := lookup(f.Well, "WELL"); ok && item.Value != "" {
		return item.Value
	}
	return UnknownWell
}

// CurveNames returns the curve mnemonics after the index curve.
func (f *File) CurveNames() []string {
	if len(f.Curves) < 2 {
		return nil
	}
	names := make([]string, 0, len(f.Curves)-1)
	for _, c := range f.Curves[1:] {
		names = append(names, c.Mnemonic)
	}
	return names
}

// Points flattens the data section curve by curve. Rows with a missing
// depth are skipped; null samples keep their depth with a nil value.
func (f *File) Points() []Point {
	if len(f.Curves) < 2 || len(f.Data) == 0 {
		return nil
	}
	out := make([]Point, 0, len(f.Data)*(len(f.Curves)-1))
	for col := 1; col < len(f.Curves); col++ {
		name := f.Curves[col].Mnemonic
		for _, row := range f.Data {
			depth := row[0]
			if f.isNull(depth) {
				continue
			}
			p := Point{Curve: name, Depth: depth}
			if v := row[col]; !f.isNull(v) {
				val := v
				p.Value = &val
			}
			out = append(out, p)
		}
	}
	return out
}

func (f *File) isNull(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v == f.Null || math.Abs(v) >= sentinelLimit
}

func lookup(items []HeaderItem, mnemonic string) (HeaderItem, bool) {
	for _, item := range items {
		if strings.EqualFold(item.Mnemonic, mnemonic) {
			return item, true
		}
	}
	return HeaderItem{}, false
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
