package domain

import "fmt"

// Opinion is an agent's conformity verdict on one item
type Opinion string

const (
	OpinionConforme            Opinion = "CONFORME"
	OpinionNonConforme         Opinion = "NON_CONFORME"
	OpinionConformeAvecReserve Opinion = "CONFORME_AVEC_RESERVE"
)

// Valid reports whether o is one of the three opinions
func (o Opinion) Valid() bool {
	switch o {
	case OpinionConforme, OpinionNonConforme, OpinionConformeAvecReserve:
		return true
	}
	return false
}

// ParseOpinion parses an opinion literal
func ParseOpinion(s string) (Opinion, error) {
	o := Opinion(s)
	if !o.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidOpinion, s)
	}
	return o, nil
}

// Decision is the case-level verdict. It uses the same literals as Opinion.
type Decision string

const (
	DecisionConforme            Decision = "CONFORME"
	DecisionNonConforme         Decision = "NON_CONFORME"
	DecisionConformeAvecReserve Decision = "CONFORME_AVEC_RESERVE"
)

// Aggregate reduces item opinions to a case decision. One NON_CONFORME item
// decides the whole case; otherwise one reservation yields
// CONFORME_AVEC_RESERVE; otherwise CONFORME. An empty list, or one holding a
// value outside the three opinions, has no decision. The result does not
// depend on the order of opinions.
func Aggregate(opinions []Opinion) *Decision {
	if len(opinions) == 0 {
		return nil
	}

	var nonConforme, reserve bool
	for _, o := range opinions {
		switch o {
		case OpinionNonConforme:
			nonConforme = true
		case OpinionConformeAvecReserve:
			reserve = true
		case OpinionConforme:
		default:
			return nil
		}
	}

	d := DecisionConforme
	switch {
	case nonConforme:
		d = DecisionNonConforme
	case reserve:
		d = DecisionConformeAvecReserve
	}
	return &d
}
