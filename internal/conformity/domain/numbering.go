package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	caseNumberPrefix = "COC"
	// maxCaseSequence is the highest six digit suffix
	maxCaseSequence = 999999
)

// CaseNumberer generates human readable case numbers (COC-YEAR-NNNNNN)
type CaseNumberer interface {
	Next(now time.Time) (string, error)
}

// FormatCaseNumber renders a case number. seq must fit in six digits.
func FormatCaseNumber(year, seq int) string {
	return fmt.Sprintf("%s-%04d-%06d", caseNumberPrefix, year, seq)
}

// ParseCaseNumber splits a case number into its year and sequence
func ParseCaseNumber(s string) (year, seq int, err error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] != caseNumberPrefix || len(parts[1]) != 4 || len(parts[2]) != 6 {
		return 0, 0, fmt.Errorf("invalid case number %q", s)
	}
	if year, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid case number year %q: %w", s, err)
	}
	if seq, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, fmt.Errorf("invalid case number sequence %q: %w", s, err)
	}
	return year, seq, nil
}

// TimeNumberer derives the suffix from the clock. Two cases created in the
// same microsecond window modulo 1e6 collide; the database unique constraint
// is the only guard.
type TimeNumberer struct{}

// Next returns a time based case number
func (TimeNumberer) Next(now time.Time) (string, error) {
	return FormatCaseNumber(now.Year(), int(now.UnixNano()%(maxCaseSequence+1))), nil
}

// SequenceNumberer issues monotonic numbers per year. The counter restarts
// at 1 when the year changes and never wraps: past COC-YEAR-999999 Next fails
// with ErrNumbersExhausted until the next year.
type SequenceNumberer struct {
	mu   sync.Mutex
	year int
	seq  int
}

// NewSequenceNumberer starts after latest, the highest number already
// issued (empty when there is none)
func NewSequenceNumberer(latest string) (*SequenceNumberer, error) {
	n := &SequenceNumberer{}
	if latest == "" {
		return n, nil
	}
	year, seq, err := ParseCaseNumber(latest)
	if err != nil {
		return nil, err
	}
	n.year, n.seq = year, seq
	return n, nil
}

// Next returns the next number for now's year
func (n *SequenceNumberer) Next(now time.Time) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	year := now.Year()
	if year != n.year {
		n.year = year
		n.seq = 0
	}
	if n.seq >= maxCaseSequence {
		return "", fmt.Errorf("%w: %d", ErrNumbersExhausted, n.year)
	}
	n.seq++
	return FormatCaseNumber(n.year, n.seq), nil
}

// LatestCaseNumberFinder is implemented by case repositories
type LatestCaseNumberFinder interface {
	LatestCaseNumber(ctx context.Context) (string, error)
}

// NewCaseNumberer builds the numberer for a configured mode ("sequence" or "time")
func NewCaseNumberer(ctx context.Context, mode string, repo LatestCaseNumberFinder) (CaseNumberer, error) {
	switch mode {
	case "time":
		return TimeNumberer{}, nil
	case "sequence", "":
		latest, err := repo.LatestCaseNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load latest case number: %w", err)
		}
		return NewSequenceNumberer(latest)
	default:
		return nil, fmt.Errorf("unknown numbering mode %q", mode)
	}
}
