package domain

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"
)

var caseNumberPattern = regexp.MustCompile(`^COC-\d{4}-\d{6}$`)

func TestTimeNumbererFormat(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 123456789, time.UTC)
	got, err := TimeNumberer{}.Next(now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !caseNumberPattern.MatchString(got) {
		t.Errorf("Unexpected case number format %q", got)
	}
	if got != "COC-2026-456789" {
		t.Errorf("Expected COC-2026-456789, got %s", got)
	}
}

func TestSequenceNumberer(t *testing.T) {
	n, err := NewSequenceNumberer("COC-2026-000041")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if got, _ := n.Next(now); got != "COC-2026-000042" {
		t.Errorf("Expected COC-2026-000042, got %s", got)
	}
	if got, _ := n.Next(now); got != "COC-2026-000043" {
		t.Errorf("Expected COC-2026-000043, got %s", got)
	}

	// New year restarts the sequence
	if got, _ := n.Next(now.AddDate(1, 0, 0)); got != "COC-2027-000001" {
		t.Errorf("Expected COC-2027-000001, got %s", got)
	}
}

func TestSequenceNumbererExhausted(t *testing.T) {
	n, err := NewSequenceNumberer("COC-2026-999998")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	now := time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)
	if got, err := n.Next(now); err != nil || got != "COC-2026-999999" {
		t.Fatalf("Expected COC-2026-999999, got %s (%v)", got, err)
	}
	for i := 0; i < 2; i++ {
		if got, err := n.Next(now); !errors.Is(err, ErrNumbersExhausted) {
			t.Fatalf("Expected ErrNumbersExhausted, got %q (%v)", got, err)
		}
	}

	if got, err := n.Next(now.AddDate(1, 0, 0)); err != nil || got != "COC-2027-000001" {
		t.Errorf("Expected COC-2027-000001, got %s (%v)", got, err)
	}
}

func TestSequenceNumbererUniqueConcurrent(t *testing.T) {
	n, _ := NewSequenceNumberer("")
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	const total = 500
	var mu sync.Mutex
	seen := make(map[string]bool, total)
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := n.Next(now)
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
				return
			}
			mu.Lock()
			seen[num] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Errorf("Expected %d unique numbers, got %d", total, len(seen))
	}
}

func TestParseCaseNumber(t *testing.T) {
	year, seq, err := ParseCaseNumber("COC-2025-001234")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if year != 2025 || seq != 1234 {
		t.Errorf("Expected 2025/1234, got %d/%d", year, seq)
	}

	for _, bad := range []string{"", "COC-2025-12", "ABC-2025-000001", "COC-20x5-000001", "COC-2025-000001-1"} {
		if _, _, err := ParseCaseNumber(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

type latestFinder struct {
	latest string
	err    error
}

func (f latestFinder) LatestCaseNumber(ctx context.Context) (string, error) {
	return f.latest, f.err
}

func TestNewCaseNumberer(t *testing.T) {
	ctx := context.Background()

	if n, err := NewCaseNumberer(ctx, "time", nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	} else if _, ok := n.(TimeNumberer); !ok {
		t.Errorf("Expected TimeNumberer, got %T", n)
	}

	n, err := NewCaseNumberer(ctx, "sequence", latestFinder{latest: "COC-2026-000009"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got, _ := n.Next(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); got != "COC-2026-000010" {
		t.Errorf("Expected COC-2026-000010, got %s", got)
	}

	boom := errors.New("connection refused")
	if _, err := NewCaseNumberer(ctx, "sequence", latestFinder{err: boom}); !errors.Is(err, boom) {
		t.Errorf("Expected repository error, got %v", err)
	}
	if _, err := NewCaseNumberer(ctx, "uuid", nil); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
