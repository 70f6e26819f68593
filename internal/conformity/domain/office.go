package domain

import (
	"fmt"
	"sync/atomic"
)

// Office is a control body a case can be assigned to
type Office string

const (
	OfficeTUV   Office = "TUV"
	OfficeECF   Office = "ECF"
	OfficeAFNOR Office = "AFNOR"
	OfficeICUM  Office = "ICUM"
	OfficeSGS   Office = "SGS"
)

// Offices is the canonical rotation order
var Offices = []Office{OfficeTUV, OfficeECF, OfficeAFNOR, OfficeICUM, OfficeSGS}

// officeFactors scale the delay estimate per office, in tenths
var officeFactors = map[Office]int{
	OfficeTUV:   10,
	OfficeECF:   11,
	OfficeAFNOR: 9,
	OfficeICUM:  12,
	OfficeSGS:   10,
}

// Valid reports whether o is one of the known offices
func (o Office) Valid() bool {
	_, ok := officeFactors[o]
	return ok
}

// Factor returns the delay multiplier for the office, 1.0 when unknown
func (o Office) Factor() float64 {
	return float64(o.factorTenths()) / 10
}

func (o Office) factorTenths() int {
	if f, ok := officeFactors[o]; ok {
		return f
	}
	return 10
}

// ParseOffice parses an office code
func ParseOffice(s string) (Office, error) {
	o := Office(s)
	if !o.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOffice, s)
	}
	return o, nil
}

// ParseOffices parses a configured rotation list, keeping its order
func ParseOffices(codes []string) ([]Office, error) {
	if len(codes) == 0 {
		return nil, ErrNoOffices
	}
	offices := make([]Office, 0, len(codes))
	for _, code := range codes {
		o, err := ParseOffice(code)
		if err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	return offices, nil
}

// OfficeRotator assigns offices round-robin. It looks at nothing but its own
// counter: office load and agent availability play no part.
type OfficeRotator struct {
	offices []Office
	counter atomic.Uint64
}

// NewOfficeRotator creates a rotator over the given ordered list
func NewOfficeRotator(offices []Office) (*OfficeRotator, error) {
	if len(offices) == 0 {
		return nil, ErrNoOffices
	}
	list := make([]Office, len(offices))
	copy(list, offices)
	return &OfficeRotator{offices: list}, nil
}

// Next returns offices[counter mod N] and advances the counter.
// Safe for concurrent use; every call gets a distinct counter value.
func (r *OfficeRotator) Next() Office {
	n := r.counter.Add(1) - 1
	return r.offices[n%uint64(len(r.offices))]
}

// Counter returns the number of assignments made so far
func (r *OfficeRotator) Counter() uint64 {
	return r.counter.Load()
}

// Offices returns a copy of the rotation list
func (r *OfficeRotator) Offices() []Office {
	list := make([]Office, len(r.offices))
	copy(list, r.offices)
	return list
}
