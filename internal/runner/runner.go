package runner

import (
	"fmt"
	"os"
	"strings"

	"cogstyle/internal/stages"
	"cogstyle/pkg/config"
	"cogstyle/pkg/spinner"
	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
)

// spinnerThreshold is the file count above which apply mode shows
// progress.
const spinnerThreshold = 10

// Result is the outcome of one pipeline run over a file set.
type Result struct {
	// Changed lists files the pipeline rewrote (apply mode) or would
	// rewrite (check mode), in input order.
	Changed []string
	// Failed maps files that could not be processed to their errors;
	// those files are left byte-identical on disk.
	Failed map[string]error
	// Diff holds the accumulated unified diff when requested in check
	// mode.
	Diff string
}

// Ok reports whether nothing would change and nothing failed.
func (r *Result) Ok() bool {
	return len(r.Changed) == 0 && len(r.Failed) == 0
}

// Pipeline threads each file's content through the configured stages in
// order. Stages compose through the file text alone: pruning changes what
// the sorter sees, sorting changes the line lengths the formatter sees.
type Pipeline struct {
	stages []stages.Stage
	cfg    *config.Config
	logger *zap.Logger
}

func New(registry *stages.Registry, cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		stages: registry.Pipeline(),
		cfg:    cfg,
		logger: logger,
	}
}

// Check runs every stage's transformation in memory and reports which
// files differ from their current contents. No file is written.
func (p *Pipeline) Check(files []string, wantDiff bool) *Result {
	result := &Result{Failed: make(map[string]error)}
	var diffs strings.Builder

	for _, file := range files {
		before, ok := p.read(file, result)
		if !ok {
			continue
		}
		after, err := p.transform(file, before)
		if err != nil {
			result.Failed[file] = err
			continue
		}
		if after == before {
			continue
		}
		result.Changed = append(result.Changed, file)
		if wantDiff {
			text, err := unifiedDiff(file, before, after)
			if err != nil {
				p.logger.Warn("failed to render diff", zap.String("file", file), zap.Error(err))
				continue
			}
			diffs.WriteString(text)
		}
	}

	result.Diff = diffs.String()
	return result
}

// Apply runs the stages over each file and rewrites it in place when the
// final text differs.
func (p *Pipeline) Apply(files []string) *Result {
	result := &Result{Failed: make(map[string]error)}

	var spin *spinner.Spinner
	if len(files) > spinnerThreshold {
		spin = spinner.New(fmt.Sprintf("reformatting 0/%d", len(files)))
		spin.Start()
		defer spin.Stop()
	}

	for i, file := range files {
		if spin != nil {
			spin.Update(fmt.Sprintf("reformatting %d/%d", i+1, len(files)))
		}
		before, ok := p.read(file, result)
		if !ok {
			continue
		}
		after, err := p.transform(file, before)
		if err != nil {
			result.Failed[file] = err
			continue
		}
		if after == before {
			continue
		}
		if err := os.WriteFile(file, []byte(after), 0644); err != nil {
			result.Failed[file] = fmt.Errorf("failed to write file: %w", err)
			continue
		}
		result.Changed = append(result.Changed, file)
	}

	return result
}

// read loads a file, tolerating files that disappeared between selection
// and processing; those are skipped with a warning, not failed.
func (p *Pipeline) read(file string, result *Result) (string, bool) {
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			p.logger.Warn("file vanished before processing, skipping", zap.String("file", file))
			return "", false
		}
		result.Failed[file] = fmt.Errorf("failed to read file: %w", err)
		return "", false
	}
	return string(data), true
}

func (p *Pipeline) transform(file, content string) (string, error) {
	for _, stage := range p.stages {
		next, err := stage.Apply(file, content, p.cfg)
		if err != nil {
			return "", fmt.Errorf("%s: %w", stage.Name(), err)
		}
		content = next
	}
	return content, nil
}

func unifiedDiff(file, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + file,
		ToFile:   "b/" + file,
		Context:  3,
	})
}
