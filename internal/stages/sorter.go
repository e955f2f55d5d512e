package stages

import (
	"slices"
	"sort"
	"strings"

	"cogstyle/internal/pysrc"
	"cogstyle/pkg/config"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

type importSection int

const (
	sectionFuture importSection = iota
	sectionStdlib
	sectionThirdParty
	sectionFirstParty
	sectionCount
)

// Sorter regroups the module's leading import block into canonical
// sections: __future__, standard library, third party, first party. It
// stops at the first non-import statement, so conditional imports further
// down are never reordered. Comments directly above an import move with
// it; the docstring and any detached header comments stay put.
type Sorter struct {
	parser *pysrc.Parser
}

func NewSorter(parser *pysrc.Parser) *Sorter {
	return &Sorter{parser: parser}
}

func (s *Sorter) Name() string {
	return string(StageNameSort)
}

func (s *Sorter) Description() string {
	return "Group and order imports"
}

// importEntry is one statement in the sortable region, normalized to a
// single module per entry.
type importEntry struct {
	kind     pysrc.ImportKind
	module   string
	wildcard bool
	bindings []pysrc.Binding
	comments []string
	trailing string
}

func (e *importEntry) render(lineLength int) []string {
	out := slices.Clone(e.comments)
	if e.kind == pysrc.ImportPlain {
		return append(out, renderPlainImport(e.bindings, e.trailing)...)
	}
	return append(out, renderFromImport(e.module, e.bindings, e.wildcard, lineLength, e.trailing)...)
}

func (s *Sorter) Apply(path, content string, cfg *config.Config) (string, error) {
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

	regionEnd, ok := importRegionEnd(root)
	if !ok {
		return content, nil
	}

	var region []pysrc.ImportStatement
	for _, stmt := range pysrc.CollectImports(root, src) {
		if stmt.TopLevel && stmt.EndByte <= regionEnd {
			region = append(region, stmt)
		}
	}
	if len(region) == 0 {
		return content, nil
	}

	hadFinalNewline := strings.HasSuffix(content, "\n")
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	// Claim the physical lines each statement occupies, then attach the
	// contiguous comment lines directly above each statement.
	claimed := make(map[int]bool)
	for _, stmt := range region {
		for l := stmt.StartLine - 1; l < stmt.EndLine; l++ {
			claimed[l] = true
		}
	}
	attached := make(map[int][]string, len(region))
	for i, stmt := range region {
		start := stmt.StartLine - 1
		var comments []string
		for l := start - 1; l >= 0 && !claimed[l]; l-- {
			text := strings.TrimSpace(lines[l])
			if !strings.HasPrefix(text, "#") {
				break
			}
			comments = append([]string{lines[l]}, comments...)
			claimed[l] = true
		}
		attached[i] = comments
	}

	headerEnd := region[0].StartLine - 1 - len(attached[0])
	regionEndLine := region[len(region)-1].EndLine // 0-based index past the region

	// Comment lines inside the region that belong to no statement are
	// kept at the top of the sorted block rather than dropped.
	var orphans []string
	for l := headerEnd; l < regionEndLine; l++ {
		if claimed[l] {
			continue
		}
		if text := strings.TrimSpace(lines[l]); strings.HasPrefix(text, "#") {
			orphans = append(orphans, lines[l])
		}
	}

	entries := s.buildEntries(region, attached, lines)
	entries = mergeEntries(entries)

	sections := make([][]*importEntry, sectionCount)
	for _, e := range entries {
		sec := classify(e, cfg)
		sections[sec] = append(sections[sec], e)
	}
	for _, sec := range sections {
		sortSection(sec)
	}

	block := slices.Clone(orphans)
	for _, sec := range sections {
		if len(sec) == 0 {
			continue
		}
		if len(block) > len(orphans) {
			block = append(block, "")
		}
		for _, e := range sec {
			block = append(block, e.render(cfg.LineLength)...)
		}
	}

	out := slices.Clone(lines[:headerEnd])
	out = append(out, block...)

	rest := lines[regionEndLine:]
	blanks := 0
	for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
		blanks++
		rest = rest[1:]
	}
	if len(rest) > 0 {
		blanks = min(max(blanks, 1), 2)
		for i := 0; i < blanks; i++ {
			out = append(out, "")
		}
		out = append(out, rest...)
	}

	result := strings.Join(out, "\n")
	if hadFinalNewline {
		result += "\n"
	}
	return result, nil
}

// buildEntries normalizes statements: plain imports explode to one entry
// per module so each can classify into its own section.
func (s *Sorter) buildEntries(region []pysrc.ImportStatement, attached map[int][]string, lines []string) []*importEntry {
	var entries []*importEntry
	for i, stmt := range region {
		trailing := statementComment(lines, stmt.StartLine, stmt.EndLine, stmt.EndCol)
		if stmt.Kind == pysrc.ImportPlain {
			for j, b := range stmt.Bindings {
				e := &importEntry{
					kind:     pysrc.ImportPlain,
					module:   b.Name,
					bindings: []pysrc.Binding{b},
				}
				if j == 0 {
					e.comments = attached[i]
					e.trailing = trailing
				}
				entries = append(entries, e)
			}
			continue
		}
		entries = append(entries, &importEntry{
			kind:     stmt.Kind,
			module:   stmt.Module,
			wildcard: stmt.Wildcard,
			bindings: slices.Clone(stmt.Bindings),
			comments: attached[i],
			trailing: trailing,
		})
	}
	return entries
}

// mergeEntries folds duplicate imports of the same module together,
// deduplicating and sorting the combined name lists.
func mergeEntries(entries []*importEntry) []*importEntry {
	seen := make(map[string]*importEntry)
	var out []*importEntry
	for _, e := range entries {
		var key string
		switch {
		case e.wildcard:
			key = "wild|" + e.module
		case e.kind == pysrc.ImportPlain:
			key = "plain|" + bindingText(e.bindings[0])
		default:
			key = "from|" + e.module
		}
		prev, exists := seen[key]
		if !exists {
			seen[key] = e
			out = append(out, e)
			continue
		}
		for _, b := range e.bindings {
			dup := slices.ContainsFunc(prev.bindings, func(p pysrc.Binding) bool {
				return p.Name == b.Name && p.Asname == b.Asname
			})
			if !dup {
				prev.bindings = append(prev.bindings, b)
			}
		}
		prev.comments = append(prev.comments, e.comments...)
		if e.trailing != "" {
			if prev.trailing != "" {
				prev.trailing += "  " + e.trailing
			} else {
				prev.trailing = e.trailing
			}
		}
	}
	for _, e := range out {
		if e.kind != pysrc.ImportPlain {
			sort.Slice(e.bindings, func(i, j int) bool {
				a, b := e.bindings[i], e.bindings[j]
				if al, bl := strings.ToLower(a.Name), strings.ToLower(b.Name); al != bl {
					return al < bl
				}
				return a.Asname < b.Asname
			})
		}
	}
	return out
}

func classify(e *importEntry, cfg *config.Config) importSection {
	if e.kind == pysrc.ImportFuture || e.module == "__future__" {
		return sectionFuture
	}
	if strings.HasPrefix(e.module, ".") {
		return sectionFirstParty
	}
	top, _, _ := strings.Cut(e.module, ".")
	if slices.Contains(cfg.Sort.KnownFirstParty, top) {
		return sectionFirstParty
	}
	if stdlibModules[top] || slices.Contains(cfg.Sort.ExtraStandardLibrary, top) {
		return sectionStdlib
	}
	return sectionThirdParty
}

func sortSection(entries []*importEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if am, bm := strings.ToLower(a.module), strings.ToLower(b.module); am != bm {
			return am < bm
		}
		if (a.kind == pysrc.ImportPlain) != (b.kind == pysrc.ImportPlain) {
			return a.kind == pysrc.ImportPlain
		}
		if a.wildcard != b.wildcard {
			return a.wildcard
		}
		if len(a.bindings) == 0 || len(b.bindings) == 0 {
			return len(b.bindings) > 0
		}
		return strings.ToLower(a.bindings[0].Name) < strings.ToLower(b.bindings[0].Name)
	})
}

// importRegionEnd finds the byte offset past the last import in the
// module's leading import region: docstring, comments and imports up to
// the first other statement.
func importRegionEnd(root *sitter.Node) (uint, bool) {
	var end uint
	sawImport := false
	sawDocstring := false
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "comment":
			continue
		case "import_statement", "import_from_statement", "future_import_statement":
			sawImport = true
			end = child.EndByte()
			continue
		case "expression_statement":
			if !sawImport && !sawDocstring && isDocstring(child) {
				sawDocstring = true
				continue
			}
		}
		return end, sawImport
	}
	return end, sawImport
}

func isDocstring(stmt *sitter.Node) bool {
	if stmt.NamedChildCount() != 1 {
		return false
	}
	child := stmt.NamedChild(0)
	return child != nil && child.Kind() == "string"
}
