package lint

import (
	"fmt"
	"os"
	"sort"

	"cogstyle/internal/pysrc"
	"cogstyle/pkg/config"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Finding is one lint diagnostic with a 1-based position.
type Finding struct {
	File    string
	Line    int
	Col     int
	Code    string
	Message string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d:%d %s %s", f.File, f.Line, f.Col, f.Code, f.Message)
}

// Linter runs the static-error checks: syntax errors (E999), undefined
// names (F821) and return/break/continue outside their valid scopes
// (F706/F701/F702). It deliberately checks nothing stylistic; style is
// the pipeline's job.
type Linter struct {
	parser *pysrc.Parser
	cfg    *config.Config
}

func New(parser *pysrc.Parser, cfg *config.Config) *Linter {
	return &Linter{parser: parser, cfg: cfg}
}

// CheckFile lints one file from disk.
func (l *Linter) CheckFile(path string) ([]Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return l.CheckSource(path, string(data)), nil
}

// CheckSource lints content in memory. A syntax error suppresses the
// name-based rules for that file; an ERROR tree yields unreliable name
// analysis.
func (l *Linter) CheckSource(path, content string) []Finding {
	src := []byte(content)
	tree, err := l.parser.Parse(src)
	if err != nil {
		return []Finding{{File: path, Line: 1, Col: 1, Code: "E999", Message: err.Error()}}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if !l.cfg.RuleEnabled("E999") {
			return nil
		}
		var findings []Finding
		for _, se := range pysrc.SyntaxErrors(root, src) {
			findings = append(findings, Finding{
				File: path, Line: se.Line, Col: se.Col,
				Code: "E999", Message: se.Message,
			})
		}
		return findings
	}

	var findings []Finding
	findings = append(findings, l.checkScopes(path, root)...)
	findings = append(findings, l.checkUndefined(path, root, src)...)

	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Code < b.Code
	})
	return findings
}

// checkScopes flags return outside a function and break/continue outside
// a loop.
func (l *Linter) checkScopes(path string, root *sitter.Node) []Finding {
	var findings []Finding
	add := func(node *sitter.Node, code, msg string) {
		if !l.cfg.RuleEnabled(code) {
			return
		}
		findings = append(findings, Finding{
			File: path,
			Line: int(node.StartPosition().Row) + 1,
			Col:  int(node.StartPosition().Column) + 1,
			Code: code, Message: msg,
		})
	}

	pysrc.Walk(root, func(node *sitter.Node) bool {
		switch node.Kind() {
		case "return_statement":
			if !insideFunction(node) {
				add(node, "F706", "'return' outside function")
			}
		case "break_statement":
			if !insideLoop(node) {
				add(node, "F701", "'break' outside loop")
			}
		case "continue_statement":
			if !insideLoop(node) {
				add(node, "F702", "'continue' not properly in loop")
			}
		case "string":
			return false
		}
		return true
	})
	return findings
}

func insideFunction(node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "function_definition":
			return true
		case "class_definition", "module":
			return false
		}
	}
	return false
}

func insideLoop(node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "for_statement", "while_statement":
			return true
		case "function_definition", "class_definition", "module":
			return false
		}
	}
	return false
}

// checkUndefined flags identifiers referenced but never bound anywhere in
// the file. The analysis is flat rather than scoped: a name bound in any
// scope satisfies a reference in any other, which trades a class of
// misses for zero false positives on closures and class attributes.
func (l *Linter) checkUndefined(path string, root *sitter.Node, src []byte) []Finding {
	if !l.cfg.RuleEnabled("F821") {
		return nil
	}

	imports := pysrc.CollectImports(root, src)
	for _, stmt := range imports {
		// A wildcard import may introduce any name.
		if stmt.Wildcard {
			return nil
		}
	}

	defined := make(map[string]bool)
	info := pysrc.CollectNames(root, src)
	for name := range info.Bindings {
		defined[name] = true
	}
	for _, stmt := range imports {
		for _, b := range stmt.Bindings {
			defined[b.Local] = true
		}
	}

	var findings []Finding
	pysrc.Walk(root, func(node *sitter.Node) bool {
		switch node.Kind() {
		case "import_statement", "import_from_statement", "future_import_statement",
			"comment", "string":
			return false
		case "identifier":
			name := node.Utf8Text(src)
			if pysrc.ClassifyIdentifier(node) != pysrc.RoleReference {
				return false
			}
			if defined[name] || pythonBuiltins[name] || implicitNames[name] {
				return false
			}
			findings = append(findings, Finding{
				File: path,
				Line: int(node.StartPosition().Row) + 1,
				Col:  int(node.StartPosition().Column) + 1,
				Code: "F821", Message: fmt.Sprintf("undefined name '%s'", name),
			})
			return false
		}
		return true
	})
	return findings
}

// implicitNames exist in every module without being bound in its text.
var implicitNames = map[string]bool{
	"__name__": true, "__file__": true, "__doc__": true,
	"__package__": true, "__spec__": true, "__loader__": true,
	"__debug__": true, "__builtins__": true, "__path__": true,
	"__class__": true,
}
