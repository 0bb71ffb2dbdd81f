package diag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKindNames(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{Syntax, "syntax error"},
		{Parse, "parse error"},
		{Runtime, "runtime error"},
		{Compilation, "compilation error"},
		{CompileTarget, "compile target error"},
		{Linker, "linker error"},
		{Io, "file error"},
		{Unknown, "unknown error"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Fatalf("kind %d name wrong: %q", tt.kind, got)
		}
	}
}

func TestSetKindIfUnknown(t *testing.T) {
	err := New(NewPos("f", 0, 0), "boom")
	err.SetKindIfUnknown(Runtime)
	if err.Kind != Runtime {
		t.Fatal("unknown kind should be stamped")
	}
	err.SetKindIfUnknown(Parse)
	if err.Kind != Runtime {
		t.Fatal("a stamped kind must not be overridden")
	}
}

func TestRenderWithoutPosition(t *testing.T) {
	err := FromKind("the linker failed", Linker)
	out := err.render(false)
	if !strings.Contains(out, "linker error: the linker failed") {
		t.Fatalf("rendering wrong: %q", out)
	}
}

func TestRenderWithSource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.cmn")
	source := "let a = 3\nlet b = oops\n"
	if writeErr := os.WriteFile(file, []byte(source), 0o644); writeErr != nil {
		t.Fatal(writeErr)
	}

	err := New(NewPos(file, 1, 2), "variable oops has not been declared").
		WithHint("declare it first")
	out := err.render(false)

	if !strings.Contains(out, "let b = oops") {
		t.Fatalf("source line missing: %q", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("caret missing: %q", out)
	}
	if !strings.Contains(out, "hint: declare it first") {
		t.Fatalf("hint missing: %q", out)
	}
	if !strings.Contains(out, file+":2:") {
		t.Fatalf("file:line trailer missing: %q", out)
	}

	// the caret must sit under the offending word
	lines := strings.Split(out, "\n")
	var srcIndex int
	for i, line := range lines {
		if line == "let b = oops" {
			srcIndex = i
			break
		}
	}
	caretLine := lines[srcIndex+1]
	if !strings.HasPrefix(caretLine, strings.Repeat(" ", strings.Index("let b = oops", "="))) {
		t.Fatalf("caret misplaced: %q", caretLine)
	}
}

func TestRenderMissingFile(t *testing.T) {
	err := New(NewPos("/does/not/exist.cmn", 3, 1), "boom")
	out := err.render(false)
	if !strings.Contains(out, "boom") {
		t.Fatalf("message missing: %q", out)
	}
}

func TestLocateWord(t *testing.T) {
	tests := []struct {
		line  string
		word  int
		start int
		width int
	}{
		{"let a = 3", 0, 0, 3},
		{"let a = 3", 1, 4, 1},
		{"let a = 3", 2, 6, 1},
		{"let a = 3", 3, 8, 1},
	}
	for i, tt := range tests {
		start, width := locateWord(tt.line, tt.word)
		if start != tt.start || width != tt.width {
			t.Fatalf("tests[%d] wrong: got %d,%d want %d,%d", i, start, width, tt.start, tt.width)
		}
	}
}
