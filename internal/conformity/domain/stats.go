package domain

// Stats summarizes a set of cases for the dashboard
type Stats struct {
	Total          int                `json:"total"`
	ByStatus       map[CaseStatus]int `json:"by_status"`
	ByOffice       map[Office]int     `json:"by_office"`
	ByDecision     map[Decision]int   `json:"by_decision"`
	PendingItems   int                `json:"pending_items"`
	AverageItems   float64            `json:"average_items"`
	ConformityRate float64            `json:"conformity_rate"`
}

// ComputeStats aggregates cases. PendingItems counts unreviewed items of
// open cases. ConformityRate is the share of closed cases decided CONFORME.
func ComputeStats(cases []Case) Stats {
	s := Stats{
		ByStatus:   make(map[CaseStatus]int),
		ByOffice:   make(map[Office]int),
		ByDecision: make(map[Decision]int),
	}

	items := 0
	for _, c := range cases {
		s.Total++
		s.ByStatus[c.Status]++
		if c.Office != "" {
			s.ByOffice[c.Office]++
		}
		if c.Decision != nil {
			s.ByDecision[*c.Decision]++
		}
		items += len(c.Items)
		if c.Status != CaseStatusClosed {
			s.PendingItems += len(c.Items) - c.ReviewedCount()
		}
	}

	if s.Total > 0 {
		s.AverageItems = float64(items) / float64(s.Total)
	}
	if closed := s.ByStatus[CaseStatusClosed]; closed > 0 {
		s.ConformityRate = float64(s.ByDecision[DecisionConforme]) / float64(closed)
	}
	return s
}
