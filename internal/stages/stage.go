package stages

import (
	"errors"
	"fmt"

	"cogstyle/internal/pysrc"
	"cogstyle/pkg/config"
)

// ErrSyntax marks a file whose parse tree contains errors. Stages return
// the content untouched alongside it; the runner reports the file and
// moves on.
var ErrSyntax = errors.New("syntax error")

// Stage rewrites one file's content under the shared style profile. A
// stage is a pure function of the file text and must be idempotent:
// applying it to its own output yields no further change.
type Stage interface {
	Name() string
	Description() string
	Apply(path, content string, cfg *config.Config) (string, error)
}

type StageName string

const (
	StageNamePrune  StageName = "prune"
	StageNameSort   StageName = "sort"
	StageNameFormat StageName = "format"
)

// PipelineOrder is the canonical stage sequence: pruning changes what the
// sorter sees, and sorting changes the line lengths the formatter sees.
var PipelineOrder = []StageName{StageNamePrune, StageNameSort, StageNameFormat}

// Registry maps stage names to implementations.
type Registry struct {
	stages map[StageName]Stage
}

// NewRegistry builds a registry holding the three pipeline stages, all
// sharing one parser.
func NewRegistry(parser *pysrc.Parser) *Registry {
	r := &Registry{stages: make(map[StageName]Stage)}
	r.Register(StageNamePrune, NewPruner(parser))
	r.Register(StageNameSort, NewSorter(parser))
	r.Register(StageNameFormat, NewFormatter(parser))
	return r
}

func (r *Registry) Register(name StageName, stage Stage) {
	r.stages[name] = stage
}

func (r *Registry) Get(name StageName) Stage {
	stage, exists := r.stages[name]
	if !exists {
		panic(fmt.Sprintf("BUG: Requested stage '%s' not found in Registry", name))
	}
	return stage
}

// Pipeline returns the stages in run order.
func (r *Registry) Pipeline() []Stage {
	out := make([]Stage, 0, len(PipelineOrder))
	for _, name := range PipelineOrder {
		out = append(out, r.Get(name))
	}
	return out
}

func syntaxError(errs []pysrc.SyntaxError) error {
	if len(errs) == 0 {
		return ErrSyntax
	}
	return fmt.Errorf("%w at %s", ErrSyntax, errs[0])
}
