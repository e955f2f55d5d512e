package pysrc

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NameInfo is the per-file name census the pruner and linter share.
type NameInfo struct {
	// Refs counts identifier occurrences in reference position, i.e.
	// excluding definition names, parameters, assignment targets and
	// import clauses.
	Refs map[string]int
	// Bindings holds every name the file binds somewhere: parameters,
	// assignment/for/with/except targets, def and class names,
	// global/nonlocal declarations. Import bindings are NOT included;
	// callers take those from CollectImports.
	Bindings map[string]bool
	// All lists the string entries of a module-level __all__ assignment.
	// Names exported there count as used for pruning purposes.
	All []string
}

// Referenced reports whether name is referenced or exported via __all__.
func (ni *NameInfo) Referenced(name string) bool {
	if ni.Refs[name] > 0 {
		return true
	}
	for _, exported := range ni.All {
		if exported == name {
			return true
		}
	}
	return false
}

// CollectNames walks the tree once and classifies every identifier as a
// reference or a binding.
func CollectNames(root *sitter.Node, src []byte) *NameInfo {
	info := &NameInfo{
		Refs:     make(map[string]int),
		Bindings: make(map[string]bool),
	}

	Walk(root, func(node *sitter.Node) bool {
		switch node.Kind() {
		case "import_statement", "import_from_statement", "future_import_statement":
			// Import clauses are neither references nor local bindings
			// here; CollectImports owns them.
			return false
		case "comment":
			return false
		case "identifier":
			name := node.Utf8Text(src)
			switch ClassifyIdentifier(node) {
			case RoleBinding:
				info.Bindings[name] = true
			case RoleReference:
				info.Refs[name]++
			}
			return false
		case "expression_statement":
			if names, ok := dunderAllEntries(node, src); ok {
				info.All = append(info.All, names...)
			}
			return true
		}
		return true
	})

	return info
}

// Role classifies an identifier occurrence.
type Role int

const (
	RoleReference Role = iota
	RoleBinding
	RoleIgnored
)

// ClassifyIdentifier decides whether an identifier occurrence reads a name
// or binds one. Anything not recognizably a binding counts as a reference;
// for pruning that errs on the side of keeping imports.
func ClassifyIdentifier(node *sitter.Node) Role {
	parent := node.Parent()
	if parent == nil {
		return RoleReference
	}

	switch parent.Kind() {
	case "attribute":
		// x.y: only x is a reference of a module-level name.
		if attr := parent.ChildByFieldName("attribute"); SameNode(attr, node) {
			return RoleIgnored
		}
		return RoleReference
	case "keyword_argument":
		if name := parent.ChildByFieldName("name"); SameNode(name, node) {
			return RoleIgnored
		}
		return RoleReference
	case "function_definition", "class_definition":
		if name := parent.ChildByFieldName("name"); SameNode(name, node) {
			return RoleBinding
		}
		return RoleReference
	case "parameters", "lambda_parameters",
		"list_splat_pattern", "dictionary_splat_pattern",
		"tuple_pattern", "list_pattern", "pattern_list",
		"as_pattern_target",
		"global_statement", "nonlocal_statement":
		return RoleBinding
	case "typed_parameter":
		// The parameter name is a direct child; the annotation sits
		// under the type field and its identifiers arrive with a
		// different parent.
		return RoleBinding
	case "default_parameter", "typed_default_parameter":
		if name := parent.ChildByFieldName("name"); SameNode(name, node) {
			return RoleBinding
		}
		return RoleReference
	case "named_expression":
		if name := parent.ChildByFieldName("name"); SameNode(name, node) {
			return RoleBinding
		}
		return RoleReference
	case "assignment", "augmented_assignment":
		if left := parent.ChildByFieldName("left"); SameNode(left, node) {
			return RoleBinding
		}
		return RoleReference
	case "for_statement", "for_in_clause":
		if left := parent.ChildByFieldName("left"); SameNode(left, node) {
			return RoleBinding
		}
		return RoleReference
	}

	return RoleReference
}

// dunderAllEntries extracts the string items of `__all__ = [...]` (or a
// tuple, or an augmented `__all__ += [...]`).
func dunderAllEntries(stmt *sitter.Node, src []byte) ([]string, bool) {
	assign := stmt.NamedChild(0)
	if assign == nil {
		return nil, false
	}
	if kind := assign.Kind(); kind != "assignment" && kind != "augmented_assignment" {
		return nil, false
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" || left.Utf8Text(src) != "__all__" {
		return nil, false
	}
	right := assign.ChildByFieldName("right")
	if right == nil {
		return nil, false
	}
	if kind := right.Kind(); kind != "list" && kind != "tuple" {
		return nil, false
	}

	var names []string
	for i := uint(0); i < right.NamedChildCount(); i++ {
		item := right.NamedChild(i)
		if item == nil || item.Kind() != "string" {
			continue
		}
		names = append(names, stringContent(item, src))
	}
	return names, true
}

// stringContent returns the text between a string literal's quotes.
func stringContent(str *sitter.Node, src []byte) string {
	var sb strings.Builder
	for i := uint(0); i < str.NamedChildCount(); i++ {
		if part := str.NamedChild(i); part != nil && part.Kind() == "string_content" {
			sb.WriteString(part.Utf8Text(src))
		}
	}
	return sb.String()
}
