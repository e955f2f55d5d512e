package pysrc

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Parser wraps a tree-sitter parser configured for the Python grammar.
// Both .py and .pyi files parse with the same grammar.
type Parser struct {
	parser   *sitter.Parser
	language *sitter.Language
}

func NewParser() (*Parser, error) {
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	parser := sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}
	return &Parser{
		parser:   parser,
		language: lang,
	}, nil
}

func (p *Parser) Language() *sitter.Language {
	return p.language
}

// Parse parses src into a syntax tree. The caller owns the tree and must
// Close it.
func (p *Parser) Parse(src []byte) (*sitter.Tree, error) {
	tree := p.parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse Python source: tree-sitter returned nil")
	}
	return tree, nil
}

// SyntaxError is a parse diagnostic with a 1-based position.
type SyntaxError struct {
	Line    int
	Col     int
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

// SyntaxErrors collects every ERROR and MISSING node in the tree, in
// document order.
func SyntaxErrors(root *sitter.Node, src []byte) []SyntaxError {
	var errs []SyntaxError
	Walk(root, func(node *sitter.Node) bool {
		if node.IsError() {
			msg := "invalid syntax"
			if text := node.Utf8Text(src); len(text) > 0 && len(text) <= 20 {
				msg = fmt.Sprintf("invalid syntax near %q", text)
			}
			errs = append(errs, SyntaxError{
				Line:    int(node.StartPosition().Row) + 1,
				Col:     int(node.StartPosition().Column) + 1,
				Message: msg,
			})
			return false
		}
		if node.IsMissing() {
			errs = append(errs, SyntaxError{
				Line:    int(node.StartPosition().Row) + 1,
				Col:     int(node.StartPosition().Column) + 1,
				Message: fmt.Sprintf("expected %s", node.Kind()),
			})
			return false
		}
		return node.HasError()
	})
	return errs
}

// Walk visits node and its descendants in document order. The callback
// reports whether to descend into the node's children.
func Walk(node *sitter.Node, fn func(*sitter.Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			Walk(child, fn)
		}
	}
}

// SameNode reports whether two nodes cover the same source span. The
// bindings hand out distinct Node values for the same underlying node, so
// pointer comparison is not usable.
func SameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}
