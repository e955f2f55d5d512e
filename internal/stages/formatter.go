package stages

import (
	"bytes"
	"sort"
	"strings"
	"unicode/utf8"

	"cogstyle/internal/pysrc"
	"cogstyle/pkg/config"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Formatter canonicalizes whitespace, blank lines, string quotes and
// overlong bracketed lines. Every rewrite is semantics-preserving: quote
// swaps only happen when the string body permits them, line breaks are
// only inserted inside brackets, and lines inside multi-line strings are
// never touched.
type Formatter struct {
	parser *pysrc.Parser
}

func NewFormatter(parser *pysrc.Parser) *Formatter {
	return &Formatter{parser: parser}
}

func (s *Formatter) Name() string {
	return string(StageNameFormat)
}

func (s *Formatter) Description() string {
	return "Normalize whitespace, quotes and line lengths"
}

func (s *Formatter) Apply(path, content string, cfg *config.Config) (string, error) {
	if content == "" {
		return content, nil
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	src := []byte(content)
	tree, err := s.parser.Parse(src)
	if err != nil {
		return content, err
	}
	root := tree.RootNode()
	if root.HasError() {
		defer tree.Close()
		return content, syntaxError(pysrc.SyntaxErrors(root, src))
	}
	protected := protectedRows(root)
	tree.Close()

	content = normalizeLines(content, protected)

	src = []byte(content)
	tree, err = s.parser.Parse(src)
	if err != nil {
		return content, err
	}
	defer tree.Close()
	root = tree.RootNode()

	src = normalizeQuotes(root, src)
	src = wrapLongLines(root, src, cfg.LineLength)

	return string(src), nil
}

// protectedRows marks the 0-based rows that fall inside a multi-line
// string literal; whitespace there is part of the string's value.
func protectedRows(root *sitter.Node) map[int]bool {
	rows := make(map[int]bool)
	pysrc.Walk(root, func(node *sitter.Node) bool {
		if node.Kind() != "string" {
			return true
		}
		start, end := int(node.StartPosition().Row), int(node.EndPosition().Row)
		for r := start + 1; r <= end; r++ {
			rows[r] = true
		}
		return false
	})
	return rows
}

// normalizeLines strips trailing whitespace, removes leading blank lines,
// collapses runs of three or more blank lines to two, and ends the file
// with exactly one newline.
func normalizeLines(content string, protected map[int]bool) string {
	lines := strings.Split(content, "\n")

	var out []string
	blanks := 0
	for i, line := range lines {
		if protected[i] {
			out = append(out, line)
			blanks = 0
			continue
		}
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if len(out) == 0 || blanks > 2 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}

	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
}

// byteEdit replaces src[start:end) with text.
type byteEdit struct {
	start, end uint
	text       []byte
}

func applyEdits(src []byte, edits []byteEdit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	for _, e := range edits {
		src = append(src[:e.start], append(e.text, src[e.end:]...)...)
	}
	return src
}

// normalizeQuotes converts single-quoted string literals to double quotes
// when the body allows it. The replacement preserves byte length, so node
// offsets stay valid for the wrapping pass.
func normalizeQuotes(root *sitter.Node, src []byte) []byte {
	var edits []byteEdit
	pysrc.Walk(root, func(node *sitter.Node) bool {
		if node.Kind() != "string" {
			return true
		}
		var startNode, endNode *sitter.Node
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "string_start":
				startNode = child
			case "string_end":
				endNode = child
			}
		}
		if startNode == nil || endNode == nil {
			return false
		}

		startText := startNode.Utf8Text(src)
		delimLen := 0
		for delimLen < len(startText) && startText[len(startText)-1-delimLen] == '\'' {
			delimLen++
		}
		if delimLen != 1 && delimLen != 3 {
			return false
		}

		body := src[startNode.EndByte():endNode.StartByte()]
		if delimLen == 1 {
			if bytes.ContainsRune(body, '"') {
				return false
			}
		} else {
			if bytes.Contains(body, []byte(`"""`)) ||
				bytes.HasPrefix(body, []byte(`"`)) || bytes.HasSuffix(body, []byte(`"`)) {
				return false
			}
		}

		quotes := bytes.Repeat([]byte(`"`), delimLen)
		edits = append(edits,
			byteEdit{startNode.EndByte() - uint(delimLen), startNode.EndByte(), quotes},
			byteEdit{endNode.StartByte(), endNode.StartByte() + uint(delimLen), quotes},
		)
		// Descend anyway: f-string interpolations hold nested strings.
		return true
	})
	return applyEdits(src, edits)
}

var wrappableBrackets = map[string]bool{
	"argument_list": true,
	"parameters":    true,
	"list":          true,
	"tuple":         true,
	"dictionary":    true,
	"set":           true,
}

// wrapLongLines rewrites overlong single-line statements by exploding
// their outermost bracketed node one element per line, black-style. A
// line is only rewritten when every resulting line fits the limit, which
// keeps the pass idempotent.
func wrapLongLines(root *sitter.Node, src []byte, lineLength int) []byte {
	lines := strings.Split(string(src), "\n")
	lineStart := make([]uint, len(lines)+1)
	for i, line := range lines {
		lineStart[i+1] = lineStart[i] + uint(len(line)) + 1
	}

	// Pick the widest, earliest single-line bracket per overlong row.
	best := make(map[int]*sitter.Node)
	pysrc.Walk(root, func(node *sitter.Node) bool {
		if !wrappableBrackets[node.Kind()] {
			return true
		}
		start, end := node.StartPosition(), node.EndPosition()
		if start.Row != end.Row {
			return true
		}
		row := int(start.Row)
		// Length is measured in characters; byte offsets overcount
		// non-ASCII text.
		if utf8.RuneCountInString(lines[row]) <= lineLength {
			return false
		}
		prev := best[row]
		if prev == nil || node.StartByte() < prev.StartByte() ||
			(node.StartByte() == prev.StartByte() && node.EndByte() > prev.EndByte()) {
			best[row] = node
		}
		return false
	})

	var edits []byteEdit
	for row, node := range best {
		line := lines[row]
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

		openCol := int(node.StartPosition().Column)
		closeCol := int(node.EndPosition().Column) - 1
		if openCol+1 > len(line) || closeCol >= len(line) || closeCol <= openCol {
			continue
		}

		var elements []string
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child == nil || child.Kind() == "comment" {
				continue
			}
			elements = append(elements, child.Utf8Text(src))
		}
		if len(elements) == 0 {
			continue
		}

		wrapped := []string{line[:openCol+1]}
		for i, el := range elements {
			suffix := ","
			// Python rejects a trailing comma after *args/**kwargs in
			// some positions, so leave it off there.
			if i == len(elements)-1 && strings.HasPrefix(el, "*") {
				suffix = ""
			}
			wrapped = append(wrapped, indent+"    "+el+suffix)
		}
		wrapped = append(wrapped, indent+line[closeCol:])

		fits := true
		for _, w := range wrapped {
			if utf8.RuneCountInString(w) > lineLength {
				fits = false
				break
			}
		}
		if !fits {
			continue
		}

		edits = append(edits, byteEdit{
			start: lineStart[row],
			end:   lineStart[row] + uint(len(line)),
			text:  []byte(strings.Join(wrapped, "\n")),
		})
	}

	return applyEdits(src, edits)
}
