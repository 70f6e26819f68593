package domain

import "testing"

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		opinions []Opinion
		want     *Decision
	}{
		{
			name:     "non conforme wins",
			opinions: []Opinion{OpinionConforme, OpinionNonConforme, OpinionConformeAvecReserve},
			want:     decisionPtr(DecisionNonConforme),
		},
		{
			name:     "reserve over conforme",
			opinions: []Opinion{OpinionConforme, OpinionConformeAvecReserve},
			want:     decisionPtr(DecisionConformeAvecReserve),
		},
		{
			name:     "all conforme",
			opinions: []Opinion{OpinionConforme, OpinionConforme},
			want:     decisionPtr(DecisionConforme),
		},
		{
			name:     "one non conforme among many",
			opinions: []Opinion{OpinionConforme, OpinionConforme, OpinionConforme, OpinionNonConforme},
			want:     decisionPtr(DecisionNonConforme),
		},
		{
			name:     "empty",
			opinions: []Opinion{},
			want:     nil,
		},
		{
			name:     "unknown opinion",
			opinions: []Opinion{"bogus"},
			want:     nil,
		},
		{
			name:     "unknown opinion among valid ones",
			opinions: []Opinion{OpinionConforme, "bogus", OpinionConformeAvecReserve},
			want:     nil,
		},
		{
			name:     "unset opinion",
			opinions: []Opinion{OpinionConforme, ""},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.opinions)
			if tt.want == nil {
				if got != nil {
					t.Errorf("Expected nil decision, got %s", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Expected %s, got nil", *tt.want)
			}
			if *got != *tt.want {
				t.Errorf("Expected %s, got %s", *tt.want, *got)
			}
		})
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	base := []Opinion{OpinionConformeAvecReserve, OpinionConforme, OpinionConforme}
	permutations := [][]Opinion{
		{base[0], base[1], base[2]},
		{base[1], base[0], base[2]},
		{base[1], base[2], base[0]},
	}

	first := Aggregate(permutations[0])
	for _, p := range permutations {
		for run := 0; run < 3; run++ {
			got := Aggregate(p)
			if *got != *first {
				t.Errorf("Expected %s for %v, got %s", *first, p, *got)
			}
		}
	}
}

func TestParseOpinion(t *testing.T) {
	if o, err := ParseOpinion("CONFORME_AVEC_RESERVE"); err != nil || o != OpinionConformeAvecReserve {
		t.Errorf("Expected CONFORME_AVEC_RESERVE, got %s (%v)", o, err)
	}
	if _, err := ParseOpinion("conforme"); err == nil {
		t.Error("Expected error for lowercase literal")
	}
}

func decisionPtr(d Decision) *Decision {
	return &d
}
