package domain

import (
	"errors"
	"sync"
	"testing"
)

func TestOfficeRotatorRoundRobin(t *testing.T) {
	offices := []Office{OfficeTUV, OfficeECF, OfficeAFNOR}
	r, err := NewOfficeRotator(offices)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	const n = 8
	for i := 0; i < n; i++ {
		got := r.Next()
		want := offices[i%len(offices)]
		if got != want {
			t.Errorf("Call %d: expected %s, got %s", i, want, got)
		}
	}
	if r.Counter() != n {
		t.Errorf("Expected counter %d, got %d", n, r.Counter())
	}
}

func TestOfficeRotatorEmptyList(t *testing.T) {
	if _, err := NewOfficeRotator(nil); !errors.Is(err, ErrNoOffices) {
		t.Errorf("Expected ErrNoOffices, got %v", err)
	}
}

func TestOfficeRotatorCopiesList(t *testing.T) {
	offices := []Office{OfficeTUV, OfficeSGS}
	r, _ := NewOfficeRotator(offices)
	offices[0] = OfficeICUM

	if got := r.Next(); got != OfficeTUV {
		t.Errorf("Expected TUV, got %s", got)
	}
}

// Concurrent callers must see every counter value exactly once, so the
// offices come out perfectly balanced.
func TestOfficeRotatorConcurrent(t *testing.T) {
	r, _ := NewOfficeRotator(Offices)

	const perOffice = 200
	total := perOffice * len(Offices)

	var mu sync.Mutex
	counts := make(map[Office]int)
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := r.Next()
			mu.Lock()
			counts[o]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, o := range Offices {
		if counts[o] != perOffice {
			t.Errorf("Expected %d cases for %s, got %d", perOffice, o, counts[o])
		}
	}
}

func TestParseOffices(t *testing.T) {
	tests := []struct {
		name    string
		codes   []string
		want    []Office
		wantErr error
	}{
		{"ordered", []string{"SGS", "TUV"}, []Office{OfficeSGS, OfficeTUV}, nil},
		{"empty", nil, nil, ErrNoOffices},
		{"unknown", []string{"TUV", "BV"}, nil, ErrUnknownOffice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOffices(tt.codes)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %s at %d, got %s", tt.want[i], i, got[i])
				}
			}
		})
	}
}

func TestOfficeFactor(t *testing.T) {
	if f := OfficeECF.Factor(); f != 1.1 {
		t.Errorf("Expected ECF factor 1.1, got %v", f)
	}
	if f := Office("XX").Factor(); f != 1.0 {
		t.Errorf("Expected default factor 1.0, got %v", f)
	}
}
