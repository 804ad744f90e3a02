// Package scenario reads compiler test cases written as Markdown.
//
// A case starts at a heading "Test: <name>" and holds one ```c fence with
// the program plus any number of assertion fences:
//
//	asm-contains   lines that must appear in the assembly, in order
//	asm-absent     lines that must not appear in the assembly
//	result         the value left in r1 when the program halts
//	compile-error  a substring of the expected compile error
//	diagnostic     a substring of an expected non-fatal diagnostic
package scenario

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const InputFence = "c"

// Kind is the language tag of an assertion fence.
type Kind string

const (
	AsmContains  Kind = "asm-contains"
	AsmAbsent    Kind = "asm-absent"
	Result       Kind = "result"
	CompileError Kind = "compile-error"
	Diagnostic   Kind = "diagnostic"
)

type Assertion struct {
	Kind    Kind
	Content string
	Line    int // 1-based line of the fence content in the Markdown file
}

// Lines returns the non-blank lines of the assertion, trimmed.
func (a Assertion) Lines() []string {
	var out []string
	for _, l := range strings.Split(a.Content, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

type Case struct {
	Name       string
	Source     string
	Assertions []Assertion
}

func isAssertion(lang string) bool {
	switch Kind(lang) {
	case AsmContains, AsmAbsent, Result, CompileError, Diagnostic:
		return true
	}
	return false
}

// Extract parses a Markdown document and returns its cases in order.
func Extract(markdown string) ([]Case, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []Case
	var current *Case

	finish := func() error {
		if current == nil {
			return nil
		}
		if current.Source == "" {
			return fmt.Errorf("test '%s' has no %s fence", current.Name, InputFence)
		}
		if len(current.Assertions) == 0 {
			return fmt.Errorf("test '%s' has no assertion fences", current.Name)
		}
		cases = append(cases, *current)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, source)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			current = &Case{Name: strings.TrimPrefix(heading, "Test: ")}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			line := lineOf(n, source)
			if lang == "" {
				return ast.WalkContinue, nil
			}
			if current == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", line, lang)
			}

			content := strings.TrimRight(fenceContent(n, source), "\n")
			switch {
			case lang == InputFence:
				if current.Source != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple %s fences in test '%s'", line, InputFence, current.Name)
				}
				current.Source = content
			case isAssertion(lang):
				current.Assertions = append(current.Assertions, Assertion{Kind: Kind(lang), Content: content, Line: line})
			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, lang, current.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := finish(); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	return cases, nil
}

// ContainsInOrder checks that every line in want occurs in text as a
// whole trimmed line, each after the previous match.
func ContainsInOrder(text string, want []string) error {
	lines := strings.Split(text, "\n")
	i := 0
	for _, w := range want {
		found := false
		for i < len(lines) {
			l := strings.TrimSpace(lines[i])
			i++
			if l == w {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("line %q not found in order", w)
		}
	}
	return nil
}

// ContainsLine reports whether text has a trimmed line equal to want.
func ContainsLine(text, want string) bool {
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == want {
			return true
		}
	}
	return false
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < block.Lines().Len(); i++ {
		line := block.Lines().At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:start], []byte("\n")) + 1
}
