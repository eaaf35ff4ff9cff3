package rules

import (
	"fmt"
	"os"
	"time"
)

// Loader caches a parsed rule file and reparses it only when the file's
// modification time advances. A parse failure empties the cached ruleset
// so stale rules are never applied, and the error is returned for the
// caller to report; later loads retry.
type Loader struct {
	path    string
	parser  *Parser
	mtime   time.Time
	ruleset *Ruleset
}

// NewLoader creates a loader for the given rule file path. An empty path
// yields an empty ruleset on every Load.
func NewLoader(path string) (*Loader, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	return &Loader{path: path, parser: p, ruleset: &Ruleset{Rules: map[string]*Rule{}}}, nil
}

// Load returns the current ruleset, reparsing the backing file if it
// changed on disk. A missing file is not an error; it yields the empty
// ruleset.
func (l *Loader) Load() (*Ruleset, error) {
	if l.path == "" {
		return l.ruleset, nil
	}

	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.reset()
			return l.ruleset, nil
		}
		return l.ruleset, fmt.Errorf("failed to stat rule file: %w", err)
	}

	if !info.ModTime().After(l.mtime) {
		return l.ruleset, nil
	}
	l.mtime = info.ModTime()

	rs, err := l.parser.ParseFile(l.path)
	if err != nil {
		l.reset()
		return l.ruleset, err
	}
	l.ruleset = rs
	return l.ruleset, nil
}

func (l *Loader) reset() {
	l.ruleset = &Ruleset{Rules: map[string]*Rule{}}
	l.mtime = time.Time{}
}
