// Package source provides the minimal location tracking the core needs to
// report diagnostics against original program text.  Lexing and parsing
// themselves are out of scope (§1 of the specification): this package only
// models what a location *is*, not how one is produced.
package source

import "fmt"

// File represents a source file as handed to the core by the (out of
// scope) parser.  Only the filename and raw text are kept; everything else
// is derived on demand.
type File struct {
	filename string
	contents []rune
}

// NewFile constructs a new source file from a byte array.
func NewFile(filename string, bytes []byte) *File {
	return &File{filename, []rune(string(bytes))}
}

// Filename returns the filename associated with this source file.
func (f *File) Filename() string {
	return f.filename
}

// Contents returns the contents of this source file.
func (f *File) Contents() []rune {
	return f.contents
}

// Span identifies a contiguous region of a source file by rune offset.
type Span struct {
	Start int
	End   int
}

// Length returns the number of runes covered by this span.
func (s Span) Length() int {
	return s.End - s.Start
}

// Line describes a single physical line of source text.
type Line struct {
	text   []rune
	span   Span
	number int
}

// String returns the text of this line.
func (l *Line) String() string {
	return string(l.text[l.span.Start:l.span.End])
}

// Number returns the 1-based line number.
func (l *Line) Number() int {
	return l.number
}

// FindFirstEnclosingLine determines the first line in this source file
// which encloses the start of a span.  If the position is beyond the file,
// the last physical line is returned.
func (f *File) FindFirstEnclosingLine(span Span) Line {
	var (
		index = span.Start
		num   = 1
		start = 0
	)
	//
	for i := 0; i < len(f.contents); i++ {
		if i == index {
			end := findEndOfLine(index, f.contents)
			return Line{f.contents, Span{start, end}, num}
		} else if f.contents[i] == '\n' {
			num++
			start = i + 1
		}
	}
	//
	return Line{f.contents, Span{start, len(f.contents)}, num}
}

func findEndOfLine(index int, text []rune) int {
	for i := index; i < len(text); i++ {
		if text[i] == '\n' {
			return i
		}
	}
	//
	return len(text)
}

// Location identifies a span of text within a specific source file.  Every
// AST node, definition, and diagnostic carries one of these.
type Location struct {
	File *File
	Span Span
}

// String renders a location as "file:line:col" for diagnostics (§7).
func (l Location) String() string {
	if l.File == nil {
		return "<unknown>"
	}
	//
	line := l.File.FindFirstEnclosingLine(l.Span)
	col := l.Span.Start - line.span.Start + 1
	//
	return fmt.Sprintf("%s:%d:%d", l.File.Filename(), line.Number(), col)
}
