package infrastructure

import (
	"context"
	"fmt"

	"github.com/coc-admin/platform/internal/conformity/domain"
	"github.com/coc-admin/platform/internal/shared/types"
)

// defaultRosters is the demo roster loaded into an empty agent table
var defaultRosters = map[domain.Office][]string{
	domain.OfficeTUV:   {"Amadou Ba", "Claire Martin", "Ousmane Sow"},
	domain.OfficeECF:   {"Mariama Diallo", "Jean Dupont", "Ibrahima Fall"},
	domain.OfficeAFNOR: {"Aminata Sy", "Pierre Leroy", "Moussa Ndiaye"},
	domain.OfficeICUM:  {"Khady Sarr", "Luc Bernard", "Cheikh Gueye"},
	domain.OfficeSGS:   {"Fatou Kane", "Marc Petit", "Abdoulaye Diop"},
}

type agentCounter interface {
	domain.AgentRepository
	CountAgents(ctx context.Context) (int, error)
}

// SeedAgents loads the demo roster of each office when no agent exists yet.
// Agent IDs are derived from office and name so reseeding is idempotent.
func SeedAgents(ctx context.Context, repo agentCounter, offices []domain.Office) (int, error) {
	n, err := repo.CountAgents(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	seeded := 0
	for _, office := range offices {
		for _, name := range defaultRosters[office] {
			a := &domain.Agent{
				ID:        types.NewDeterministicID(string(office), name),
				Name:      name,
				Office:    office,
				Available: true,
			}
			if err := repo.SaveAgent(ctx, a); err != nil {
				return seeded, fmt.Errorf("failed to seed agent %s: %w", name, err)
			}
			seeded++
		}
	}
	return seeded, nil
}
