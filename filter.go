package logarchive

import (
	"fmt"

	"github.com/moby/patternmatcher"
)

// nameFilter applies EntrySource include and exclude patterns to file names.
type nameFilter struct {
	include *patternmatcher.PatternMatcher
	exclude *patternmatcher.PatternMatcher
}

func newNameFilter(include, exclude []string) (*nameFilter, error) {
	f := &nameFilter{}
	var err error
	if len(include) > 0 {
		if f.include, err = patternmatcher.New(include); err != nil {
			return nil, fmt.Errorf("include patterns: %w", err)
		}
	}
	if len(exclude) > 0 {
		if f.exclude, err = patternmatcher.New(exclude); err != nil {
			return nil, fmt.Errorf("exclude patterns: %w", err)
		}
	}
	return f, nil
}

// admits reports whether name passes both pattern sets.
func (f *nameFilter) admits(name string) (bool, error) {
	if f.include != nil {
		ok, err := f.include.MatchesOrParentMatches(name)
		if err != nil || !ok {
			return false, err
		}
	}
	if f.exclude != nil {
		drop, err := f.exclude.MatchesOrParentMatches(name)
		if err != nil || drop {
			return false, err
		}
	}
	return true, nil
}
