package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Preprocess expands `#include "file"` and object-like `#define NAME VALUE`
// directives. Other directives are blanked. Directive lines become empty
// lines so line numbers of the including file stay intact.
func Preprocess(src string, baseDir string) (string, error) {
	pp := &preprocessor{
		defines:  make(map[string]string),
		included: make(map[string]bool),
	}
	return pp.run(src, baseDir, make(map[string]bool))
}

type preprocessor struct {
	defines map[string]string
	// included holds files already expanded once; a second include is a no-op.
	included map[string]bool
}

func (pp *preprocessor) run(src, baseDir string, stack map[string]bool) (string, error) {
	var out strings.Builder

	for i, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			out.WriteString(pp.expand(line))
			out.WriteByte('\n')
			continue
		}

		directive := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		switch {
		case strings.HasPrefix(directive, "define"):
			if err := pp.define(strings.TrimSpace(strings.TrimPrefix(directive, "define"))); err != nil {
				return "", fmt.Errorf("line %d: %w", i+1, err)
			}
			out.WriteByte('\n')

		case strings.HasPrefix(directive, "include"):
			content, err := pp.include(directive, baseDir, stack)
			if err != nil {
				return "", fmt.Errorf("line %d: %w", i+1, err)
			}
			out.WriteString(content)
			out.WriteByte('\n')

		default:
			out.WriteByte('\n')
		}
	}
	return strings.TrimSuffix(out.String(), "\n"), nil
}

func (pp *preprocessor) define(rest string) error {
	if rest == "" {
		return fmt.Errorf("#define without a name")
	}
	end := strings.IndexAny(rest, " \t(")
	if end == -1 {
		pp.defines[rest] = ""
		return nil
	}
	if rest[end] == '(' {
		return fmt.Errorf("function-like macro %q is not supported", rest[:end])
	}
	pp.defines[rest[:end]] = pp.expand(strings.TrimSpace(rest[end:]))
	return nil
}

func (pp *preprocessor) include(directive, baseDir string, stack map[string]bool) (string, error) {
	parts := strings.SplitN(directive, "\"", 3)
	if len(parts) < 3 {
		return "", fmt.Errorf("invalid include directive: #%s", directive)
	}
	name := parts[1]

	path, err := filepath.Abs(filepath.Join(baseDir, name))
	if err != nil {
		return "", err
	}
	if stack[path] {
		return "", fmt.Errorf("circular include detected: %s", name)
	}
	if pp.included[path] {
		return "", nil
	}
	pp.included[path] = true

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read included file %s: %w", name, err)
	}

	inner := make(map[string]bool, len(stack)+1)
	for k := range stack {
		inner[k] = true
	}
	inner[path] = true
	return pp.run(string(content), filepath.Dir(path), inner)
}

// expand substitutes defined names on identifier boundaries, skipping
// character literals and comments.
func (pp *preprocessor) expand(line string) string {
	if len(pp.defines) == 0 {
		return line
	}

	var sb strings.Builder
	n := len(line)
	for i := 0; i < n; {
		c := line[i]
		switch {
		case c == '/' && i+1 < n && line[i+1] == '/':
			sb.WriteString(line[i:])
			return sb.String()

		case c == '\'':
			j := i + 1
			for j < n && line[j] != '\'' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j < n {
				j++
			}
			if j > n {
				j = n
			}
			sb.WriteString(line[i:j])
			i = j

		case isIdentStart(rune(c)):
			j := i
			for j < n && isIdentPart(rune(line[j])) {
				j++
			}
			word := line[i:j]
			if val, ok := pp.defines[word]; ok {
				sb.WriteString(val)
			} else {
				sb.WriteString(word)
			}
			i = j

		case c >= '0' && c <= '9':
			// Keep numeric literals such as 0x1F whole.
			j := i
			for j < n && isIdentPart(rune(line[j])) {
				j++
			}
			sb.WriteString(line[i:j])
			i = j

		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
