package stages

import (
	"path/filepath"
	"strings"

	"cogstyle/internal/pysrc"
	"cogstyle/pkg/config"
)

// Pruner removes imports whose bound names are never referenced in the
// file. It only touches module-level imports that own their source lines;
// wildcard imports, __future__ imports, conditional imports and anything
// on the profile's preserve list are kept regardless of use.
type Pruner struct {
	parser *pysrc.Parser
}

func NewPruner(parser *pysrc.Parser) *Pruner {
	return &Pruner{parser: parser}
}

func (s *Pruner) Name() string {
	return string(StageNamePrune)
}

func (s *Pruner) Description() string {
	return "Remove unused imports"
}

func (s *Pruner) Apply(path, content string, cfg *config.Config) (string, error) {
	if cfg.Prune.KeepInitImports && filepath.Base(path) == "__init__.py" {
		return content, nil
	}

	src := []byte(content)
	tree, err := s.parser.Parse(src)
	if err != nil {
		return content, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return content, syntaxError(pysrc.SyntaxErrors(root, src))
	}

	imports := pysrc.CollectImports(root, src)
	names := pysrc.CollectNames(root, src)
	lines := strings.Split(content, "\n")

	// Rewrite bottom-up so earlier line numbers stay valid.
	for i := len(imports) - 1; i >= 0; i-- {
		stmt := imports[i]
		if !s.prunable(stmt, cfg, lines) {
			continue
		}

		kept := make([]pysrc.Binding, 0, len(stmt.Bindings))
		for _, b := range stmt.Bindings {
			if names.Referenced(b.Local) {
				kept = append(kept, b)
			}
		}
		if len(kept) == len(stmt.Bindings) {
			continue
		}

		start, end := stmt.StartLine-1, stmt.EndLine // 0-based half-open
		if len(kept) == 0 {
			lines = append(lines[:start], lines[end:]...)
			continue
		}

		trailing := statementComment(lines, stmt.StartLine, stmt.EndLine, stmt.EndCol)
		rendered := renderImport(stmt, kept, cfg.LineLength, trailing)
		lines = append(lines[:start], append(rendered, lines[end:]...)...)
	}

	return strings.Join(lines, "\n"), nil
}

// prunable filters statements the pruner may rewrite at all.
func (s *Pruner) prunable(stmt pysrc.ImportStatement, cfg *config.Config, lines []string) bool {
	if !stmt.TopLevel || stmt.Wildcard || stmt.Kind == pysrc.ImportFuture {
		return false
	}
	if len(stmt.Bindings) == 0 {
		return false
	}
	if stmt.PreservedBy(cfg.Prune.Preserve) {
		return false
	}

	// The statement must own its physical lines: nothing before it on
	// the first line, nothing but a comment after it on the last.
	if stmt.StartCol != 0 {
		return false
	}
	last := lines[stmt.EndLine-1]
	if stmt.EndCol > len(last) {
		return false
	}
	tail := strings.TrimSpace(last[stmt.EndCol:])
	if tail != "" && !strings.HasPrefix(tail, "#") {
		return false
	}
	// A noqa marker opts the statement out, wherever the comment sits:
	// after the statement, or after the open paren of a multi-line form.
	comment := statementComment(lines, stmt.StartLine, stmt.EndLine, stmt.EndCol)
	if strings.Contains(strings.ToLower(comment), "noqa") {
		return false
	}
	return true
}
