package domain

import "testing"

func TestComputeStats(t *testing.T) {
	open := newAssignedCase(t, CategoryFood, CategoryToys)

	reviewing := newAssignedCase(t, CategoryFood, CategoryFood)
	_ = reviewing.StartReview(reviewing.AgentID, testNow)
	_ = reviewing.RecordOpinion(0, OpinionConforme, "", reviewing.AgentID, testNow)

	closed := newAssignedCase(t, CategoryIT, CategoryIT)
	_ = closed.StartReview(closed.AgentID, testNow)
	_ = closed.RecordOpinion(0, OpinionConforme, "", closed.AgentID, testNow)
	_ = closed.RecordOpinion(1, OpinionConforme, "", closed.AgentID, testNow)
	if _, err := closed.Finalize(closed.AgentID, testNow); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	s := ComputeStats([]Case{*open, *reviewing, *closed})

	if s.Total != 3 {
		t.Errorf("Expected 3 cases, got %d", s.Total)
	}
	if s.ByStatus[CaseStatusSubmitted] != 1 || s.ByStatus[CaseStatusInProgress] != 1 || s.ByStatus[CaseStatusClosed] != 1 {
		t.Errorf("Unexpected status counts %v", s.ByStatus)
	}
	if s.ByOffice[OfficeTUV] != 3 {
		t.Errorf("Expected 3 TUV cases, got %d", s.ByOffice[OfficeTUV])
	}
	if s.ByDecision[DecisionConforme] != 1 {
		t.Errorf("Expected 1 CONFORME decision, got %v", s.ByDecision)
	}
	// 2 unreviewed on the open case, 1 on the one in review
	if s.PendingItems != 3 {
		t.Errorf("Expected 3 pending items, got %d", s.PendingItems)
	}
	if s.AverageItems != 2 {
		t.Errorf("Expected 2 items per case, got %v", s.AverageItems)
	}
	if s.ConformityRate != 1 {
		t.Errorf("Expected conformity rate 1, got %v", s.ConformityRate)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	s := ComputeStats(nil)
	if s.Total != 0 || s.AverageItems != 0 || s.ConformityRate != 0 {
		t.Errorf("Expected zero stats, got %+v", s)
	}
}
