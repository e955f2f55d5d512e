package stages

import (
	"strings"
	"unicode/utf8"

	"cogstyle/internal/pysrc"
)

// bindingText renders one import clause: "name" or "name as alias".
func bindingText(b pysrc.Binding) string {
	if b.Asname != "" {
		return b.Name + " as " + b.Asname
	}
	return b.Name
}

// renderPlainImport renders "import a.b" statements, one line per binding.
// Splitting multi-name imports matches the canonical one-module-per-line
// layout the sorter enforces.
func renderPlainImport(bindings []pysrc.Binding, trailing string) []string {
	lines := make([]string, 0, len(bindings))
	for i, b := range bindings {
		line := "import " + bindingText(b)
		if i == 0 && trailing != "" {
			line += "  " + trailing
		}
		lines = append(lines, line)
	}
	return lines
}

// renderFromImport renders a from-import in the given binding order,
// wrapping in parentheses with a trailing comma when the single-line form
// exceeds lineLength.
func renderFromImport(module string, bindings []pysrc.Binding, wildcard bool, lineLength int, trailing string) []string {
	if wildcard {
		line := "from " + module + " import *"
		if trailing != "" {
			line += "  " + trailing
		}
		return []string{line}
	}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, bindingText(b))
	}

	single := "from " + module + " import " + strings.Join(parts, ", ")
	if trailing != "" {
		single += "  " + trailing
	}
	if utf8.RuneCountInString(single) <= lineLength {
		return []string{single}
	}

	head := "from " + module + " import ("
	if trailing != "" {
		head += "  " + trailing
	}
	lines := make([]string, 0, len(bindings)+2)
	lines = append(lines, head)
	for _, part := range parts {
		lines = append(lines, "    "+part+",")
	}
	lines = append(lines, ")")
	return lines
}

// renderImport dispatches on statement kind, preserving binding order.
func renderImport(stmt pysrc.ImportStatement, bindings []pysrc.Binding, lineLength int, trailing string) []string {
	if stmt.Kind == pysrc.ImportPlain {
		return renderPlainImport(bindings, trailing)
	}
	return renderFromImport(stmt.Module, bindings, stmt.Wildcard, lineLength, trailing)
}

// trailingComment returns the comment text after an import statement on
// its final line, empty when none.
func trailingComment(line string, endCol int) string {
	if endCol >= len(line) {
		return ""
	}
	tail := strings.TrimSpace(line[endCol:])
	if strings.HasPrefix(tail, "#") {
		return tail
	}
	return ""
}

// statementComment returns the comment attached to an import statement:
// after the statement on its last line, or after the opening bracket on
// the first line of a parenthesized multi-line form. The second case is
// where renderFromImport leaves the comment when it wraps, so harvesting
// it back keeps the wrap decision stable across runs.
func statementComment(lines []string, startLine, endLine, endCol int) string {
	if c := trailingComment(lines[endLine-1], endCol); c != "" {
		return c
	}
	if endLine > startLine {
		// Import lines cannot contain string literals, so the first
		// hash is always a comment.
		if idx := strings.Index(lines[startLine-1], "#"); idx >= 0 {
			return strings.TrimSpace(lines[startLine-1][idx:])
		}
	}
	return ""
}
