package pysrc

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type ImportKind int

const (
	// ImportPlain is "import a.b" or "import a.b as c".
	ImportPlain ImportKind = iota
	// ImportFrom is "from a.b import c" including relative forms.
	ImportFrom
	// ImportFuture is "from __future__ import ...".
	ImportFuture
)

// Binding is one name bound by an import statement.
type Binding struct {
	// Name is the imported path as written: "os.path" for a plain
	// import, the bare name for a from-import.
	Name string
	// Local is the name actually bound in the module namespace: the
	// alias when present, the first dotted segment for a plain import,
	// the name itself for a from-import.
	Local string
	// Asname is the explicit alias, empty when none was written.
	Asname string
}

// ImportStatement is one import/from-import statement in a file.
type ImportStatement struct {
	Kind     ImportKind
	Module   string // from-import source, leading dots kept for relative imports
	Bindings []Binding
	Wildcard bool
	// TopLevel is false for imports nested inside try/if/def bodies;
	// those are never rewritten by any stage.
	TopLevel  bool
	StartLine int // 1-based, inclusive
	EndLine   int
	StartCol  int // 0-based column on StartLine
	EndCol    int // 0-based column just past the statement on EndLine
	StartByte uint
	EndByte   uint
}

// PreservedBy reports whether the statement imports from one of the given
// top-level modules.
func (s *ImportStatement) PreservedBy(modules []string) bool {
	check := func(path string) bool {
		top, _, _ := strings.Cut(strings.TrimLeft(path, "."), ".")
		for _, m := range modules {
			if top == m {
				return true
			}
		}
		return false
	}
	if s.Kind == ImportFrom || s.Kind == ImportFuture {
		return check(s.Module)
	}
	for _, b := range s.Bindings {
		if check(b.Name) {
			return true
		}
	}
	return false
}

var importKinds = map[string]ImportKind{
	"import_statement":        ImportPlain,
	"import_from_statement":   ImportFrom,
	"future_import_statement": ImportFuture,
}

// CollectImports gathers every import statement in the tree, in document
// order. Nested imports are included with TopLevel false so callers can
// still count their bindings.
func CollectImports(root *sitter.Node, src []byte) []ImportStatement {
	var stmts []ImportStatement
	Walk(root, func(node *sitter.Node) bool {
		kind, ok := importKinds[node.Kind()]
		if !ok {
			// Imports never nest inside expressions, so skip leaf-heavy
			// subtrees early.
			switch node.Kind() {
			case "expression_statement", "return_statement", "call", "string":
				return false
			}
			return true
		}
		stmts = append(stmts, parseImport(node, src, kind))
		return false
	})
	return stmts
}

func parseImport(node *sitter.Node, src []byte, kind ImportKind) ImportStatement {
	parent := node.Parent()
	stmt := ImportStatement{
		Kind:      kind,
		TopLevel:  parent != nil && parent.Kind() == "module",
		StartLine: int(node.StartPosition().Row) + 1,
		EndLine:   int(node.EndPosition().Row) + 1,
		StartCol:  int(node.StartPosition().Column),
		EndCol:    int(node.EndPosition().Column),
		StartByte: node.StartByte(),
		EndByte:   node.EndByte(),
	}

	var moduleNode *sitter.Node
	switch kind {
	case ImportFrom:
		moduleNode = node.ChildByFieldName("module_name")
		if moduleNode != nil {
			stmt.Module = moduleNode.Utf8Text(src)
		}
	case ImportFuture:
		stmt.Module = "__future__"
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || SameNode(child, moduleNode) {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			name := child.Utf8Text(src)
			local := name
			if kind == ImportPlain {
				local, _, _ = strings.Cut(name, ".")
			}
			stmt.Bindings = append(stmt.Bindings, Binding{Name: name, Local: local})
		case "aliased_import":
			var name, alias string
			if n := child.ChildByFieldName("name"); n != nil {
				name = n.Utf8Text(src)
			}
			if a := child.ChildByFieldName("alias"); a != nil {
				alias = a.Utf8Text(src)
			}
			stmt.Bindings = append(stmt.Bindings, Binding{Name: name, Local: alias, Asname: alias})
		case "wildcard_import":
			stmt.Wildcard = true
		}
	}

	return stmt
}
