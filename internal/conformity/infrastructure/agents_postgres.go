package infrastructure

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coc-admin/platform/internal/conformity/domain"
	"github.com/coc-admin/platform/internal/shared/errors"
	"github.com/coc-admin/platform/internal/shared/types"
)

// PostgresAgentRepository implements domain.AgentRepository using PostgreSQL
type PostgresAgentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAgentRepository creates a new agent repository
func NewPostgresAgentRepository(pool *pgxpool.Pool) *PostgresAgentRepository {
	return &PostgresAgentRepository{pool: pool}
}

const agentColumns = `id, name, office, available, on_leave, load`

// SaveAgent inserts an agent or updates its profile and availability
func (r *PostgresAgentRepository) SaveAgent(ctx context.Context, a *domain.Agent) error {
	query := `
		INSERT INTO coc.agents (id, name, office, available, on_leave, load)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			office = EXCLUDED.office,
			available = EXCLUDED.available,
			on_leave = EXCLUDED.on_leave,
			updated_at = NOW()
		RETURNING load`

	err := r.pool.QueryRow(ctx, query,
		a.ID, a.Name, a.Office, a.Available, a.OnLeave, a.Load,
	).Scan(&a.Load)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("agent already exists")
		}
		return errors.Wrap(err, "failed to save agent")
	}

	return nil
}

// FindAgent finds an agent by ID
func (r *PostgresAgentRepository) FindAgent(ctx context.Context, id types.ID) (*domain.Agent, error) {
	a := &domain.Agent{}
	err := r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM coc.agents WHERE id = $1`, id).Scan(
		&a.ID, &a.Name, &a.Office, &a.Available, &a.OnLeave, &a.Load,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("agent", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find agent")
	}
	return a, nil
}

// ListAgents lists every agent ordered by office and name
func (r *PostgresAgentRepository) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	return r.queryAgents(ctx, `SELECT `+agentColumns+` FROM coc.agents ORDER BY office, name`)
}

// Roster lists the agents of one office
func (r *PostgresAgentRepository) Roster(ctx context.Context, office domain.Office) ([]domain.Agent, error) {
	return r.queryAgents(ctx, `SELECT `+agentColumns+` FROM coc.agents WHERE office = $1 ORDER BY name`, office)
}

// EligibleAgents lists the office agents that can take a new case
func (r *PostgresAgentRepository) EligibleAgents(ctx context.Context, office domain.Office) ([]domain.Agent, error) {
	return r.queryAgents(ctx, `
		SELECT `+agentColumns+`
		FROM coc.agents
		WHERE office = $1 AND available AND NOT on_leave
		ORDER BY load, id`, office)
}

// AdjustLoad adds delta to the agent's load in one statement, flooring at zero
func (r *PostgresAgentRepository) AdjustLoad(ctx context.Context, id types.ID, delta int) (*domain.Agent, error) {
	query := `
		UPDATE coc.agents SET load = GREATEST(load + $2, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + agentColumns

	a := &domain.Agent{}
	err := r.pool.QueryRow(ctx, query, id, delta).Scan(
		&a.ID, &a.Name, &a.Office, &a.Available, &a.OnLeave, &a.Load,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("agent", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to adjust agent load")
	}
	return a, nil
}

// CountAgents returns the number of agents, used to decide on seeding
func (r *PostgresAgentRepository) CountAgents(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coc.agents`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count agents")
	}
	return n, nil
}

func (r *PostgresAgentRepository) queryAgents(ctx context.Context, query string, args ...any) ([]domain.Agent, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list agents")
	}
	defer rows.Close()

	agents := []domain.Agent{}
	for rows.Next() {
		var a domain.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Office, &a.Available, &a.OnLeave, &a.Load); err != nil {
			return nil, errors.Wrap(err, "failed to scan agent")
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to list agents")
	}

	return agents, nil
}
