package selector

import (
	"fmt"
	"os/exec"
	"strings"

	"cogstyle/pkg/config"
	"github.com/sourcegraph/go-diff/diff"
	"go.uber.org/zap"
)

// Selector resolves the file set a run operates on. The decision rule:
// use the staged subset when any staged change matches the profile's
// extensions, otherwise fall back to every tracked matching file.
// Explicit paths bypass git entirely.
type Selector struct {
	cfg    *config.Config
	logger *zap.Logger
}

func New(cfg *config.Config, logger *zap.Logger) *Selector {
	return &Selector{cfg: cfg, logger: logger}
}

// Select returns the ordered, deduplicated, extension-filtered file set.
// An empty result is not an error; downstream commands no-op on it.
func (s *Selector) Select(paths []string, all bool) ([]string, error) {
	if len(paths) > 0 {
		return s.Filter(paths), nil
	}

	if !all {
		staged, err := s.stagedFiles()
		if err != nil {
			return nil, err
		}
		staged = s.Filter(staged)
		if len(staged) > 0 {
			s.logger.Debug("using staged file set", zap.Int("count", len(staged)))
			return staged, nil
		}
	}

	tracked, err := s.trackedFiles()
	if err != nil {
		return nil, err
	}
	tracked = s.Filter(tracked)
	s.logger.Debug("using tracked file set", zap.Int("count", len(tracked)))
	return tracked, nil
}

// stagedFiles parses the staged diff rather than --name-only output so
// renames and deletions resolve to the correct surviving path.
func (s *Selector) stagedFiles() ([]string, error) {
	cmd := exec.Command("git", "diff", "--staged")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get staged diff: %w", err)
	}
	if strings.TrimSpace(string(output)) == "" {
		return nil, nil
	}

	fileDiffs, err := diff.ParseMultiFileDiff(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse staged diff: %w", err)
	}

	var files []string
	for _, fd := range fileDiffs {
		if fd.NewName == "/dev/null" {
			continue
		}
		if name := strings.TrimPrefix(fd.NewName, "b/"); name != "" {
			files = append(files, name)
		}
	}
	return files, nil
}

func (s *Selector) trackedFiles() ([]string, error) {
	cmd := exec.Command("git", "ls-files")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked files: %w", err)
	}
	return ParseLines(string(output)), nil
}

// Filter keeps paths matching the configured extensions, drops excluded
// directories, and deduplicates while preserving order.
func (s *Selector) Filter(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		if !s.cfg.MatchesExtension(p) || s.cfg.Excluded(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ParseLines splits newline-separated git output into trimmed non-empty
// entries.
func ParseLines(output string) []string {
	if output == "" {
		return []string{}
	}

	var files []string
	lines := strings.SplitSeq(strings.TrimSpace(output), "\n")

	for line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}

	return files
}
