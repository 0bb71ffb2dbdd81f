package diag

import (
	"fmt"
	"os"
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/term"
)

// Kind categorises an error by the phase that produced it.
type Kind int

const (
	Unknown Kind = iota
	Io
	Syntax
	Parse
	Runtime
	Compilation
	CompileTarget
	Malloc
	Linker
)

var kindNames = map[Kind]string{
	Unknown:       "unknown error",
	Io:            "file error",
	Syntax:        "syntax error",
	Parse:         "parse error",
	Runtime:       "runtime error",
	Compilation:   "compilation error",
	CompileTarget: "compile target error",
	Malloc:        "allocator error",
	Linker:        "linker error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown error"
}

// Pos locates a token in a source file: a 0-indexed line and a 0-indexed
// word within that line. Words follow Unicode word boundaries, whitespace
// excluded.
type Pos struct {
	File string
	Line int
	Word int
}

func NewPos(file string, line, word int) Pos {
	return Pos{File: file, Line: line, Word: word}
}

// Error is the diagnostic carried through every phase of the pipeline.
// The kind is usually stamped late, by the phase boundary that knows it.
type Error struct {
	Kind    Kind
	Pos     *Pos
	Message string
	Hint    string
}

func New(pos Pos, message string) *Error {
	p := pos
	return &Error{Kind: Unknown, Pos: &p, Message: message}
}

func Newf(pos Pos, format string, args ...interface{}) *Error {
	return New(pos, fmt.Sprintf(format, args...))
}

// FromKind builds a position-less diagnostic, used by the compile-target
// and linker integrations where no source location applies.
func FromKind(message string, kind Kind) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// SetKindIfUnknown stamps the kind unless a more specific one is already set.
func (e *Error) SetKindIfUnknown(kind Kind) {
	if e.Kind == Unknown {
		e.Kind = kind
	}
}

func (e *Error) SetKind(kind Kind) {
	e.Kind = kind
}

func (e *Error) Error() string {
	return e.Message
}

const (
	ansiRed   = "\x1b[31m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// Render formats the diagnostic with source-line context: the offending
// line, a caret run under the offending word, the message, the hint if any,
// and a file:line:column trailer. Diagnostics without a position render as
// a single line, followed by the hint line if any.
func (e *Error) Render() string {
	color := term.IsTerminal(int(os.Stderr.Fd()))
	return e.render(color)
}

func (e *Error) render(color bool) string {
	var b strings.Builder

	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + ansiReset
	}

	header := paint(ansiRed+ansiBold, e.Kind.String())
	if e.Pos == nil {
		b.WriteString(fmt.Sprintf("%s: %s\n", header, e.Message))
		if e.Hint != "" {
			b.WriteString(fmt.Sprintf("hint: %s\n", e.Hint))
		}
		return b.String()
	}

	line, ok := readLine(e.Pos.File, e.Pos.Line)
	if !ok {
		b.WriteString(fmt.Sprintf("%s: %s\n", header, e.Message))
		if e.Hint != "" {
			b.WriteString(fmt.Sprintf("hint: %s\n", e.Hint))
		}
		b.WriteString(fmt.Sprintf("in file %s\n", e.Pos.File))
		return b.String()
	}

	start, width := locateWord(line, e.Pos.Word)

	b.WriteString(fmt.Sprintf("\n%s\n", line))
	b.WriteString(strings.Repeat(" ", start))
	b.WriteString(paint(ansiRed, strings.Repeat("^", width)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s: %s\n", header, e.Message))
	if e.Hint != "" {
		b.WriteString(fmt.Sprintf("hint: %s\n", e.Hint))
	}
	b.WriteString(fmt.Sprintf("in file %s:%d:%d\n", e.Pos.File, e.Pos.Line+1, start+1))
	return b.String()
}

// locateWord finds the byte offset and display width of the nth
// non-whitespace word of a line, under the same segmentation the lexer
// uses. Falls back to the whole line when the index is off the end.
func locateWord(line string, word int) (start, width int) {
	rest := line
	state := -1
	offset := 0
	index := 0
	var seg string
	for len(rest) > 0 {
		seg, rest, state = uniseg.FirstWordInString(rest, state)
		if strings.TrimSpace(seg) != "" {
			if index == word {
				return offset, len([]rune(seg))
			}
			index++
		}
		offset += len([]rune(seg))
	}
	if line == "" {
		return 0, 1
	}
	return 0, len([]rune(line))
}

func readLine(file string, index int) (string, bool) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", false
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if index < 0 || index >= len(lines) {
		return "", false
	}
	return lines[index], true
}
