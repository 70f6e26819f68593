package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coc-admin/platform/internal/conformity/domain"
	"github.com/coc-admin/platform/internal/shared/errors"
	"github.com/coc-admin/platform/internal/shared/types"
)

// PostgresCaseRepository implements domain.Repository using PostgreSQL
type PostgresCaseRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCaseRepository creates a new PostgreSQL case repository
func NewPostgresCaseRepository(pool *pgxpool.Pool) *PostgresCaseRepository {
	return &PostgresCaseRepository{pool: pool}
}

const caseColumns = `
	id, case_number, applicant_id, applicant_role, status,
	COALESCE(office, ''), agent_id, COALESCE(agent_name, ''), assigned_at,
	decision, documents,
	created_at, updated_at, closed_at`

// Save saves a new case with its items and timeline
func (r *PostgresCaseRepository) Save(ctx context.Context, c *domain.Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	documentsJSON, err := json.Marshal(c.Documents)
	if err != nil {
		return errors.Wrap(err, "failed to marshal documents")
	}

	query := `
		INSERT INTO coc.cases (
			id, case_number, applicant_id, applicant_role, status,
			office, agent_id, agent_name, assigned_at,
			decision, documents,
			created_at, updated_at, closed_at
		) VALUES (
			$1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10, $11, $12, $13, $14
		)`

	_, err = tx.Exec(ctx, query,
		c.ID, c.CaseNumber, c.ApplicantID, c.ApplicantRole, c.Status,
		string(c.Office), c.AgentID, c.AgentName, c.AssignedAt,
		decisionValue(c.Decision), documentsJSON,
		c.CreatedAt, c.UpdatedAt, c.ClosedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("case with this number already exists")
		}
		return errors.Wrap(err, "failed to save case")
	}

	for i := range c.Items {
		if err := r.saveItem(ctx, tx, c.ID, i, &c.Items[i]); err != nil {
			return err
		}
	}
	if err := r.saveReassignments(ctx, tx, c); err != nil {
		return err
	}
	if err := r.saveEvents(ctx, tx, c); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// Update persists status, assignment, reviews, reassignments and new events
func (r *PostgresCaseRepository) Update(ctx context.Context, c *domain.Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE coc.cases SET
			status = $2, office = NULLIF($3, ''), agent_id = $4, agent_name = NULLIF($5, ''),
			assigned_at = $6, decision = $7,
			updated_at = $8, closed_at = $9
		WHERE id = $1`

	result, err := tx.Exec(ctx, query,
		c.ID, c.Status, string(c.Office), c.AgentID, c.AgentName,
		c.AssignedAt, decisionValue(c.Decision),
		c.UpdatedAt, c.ClosedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update case")
	}
	if result.RowsAffected() == 0 {
		return errors.NotFound("case", c.ID.String())
	}

	for i := range c.Items {
		item := &c.Items[i]
		if !item.Reviewed() {
			continue
		}
		// Opinions are written once; a second write is a no-op
		_, err := tx.Exec(ctx, `
			UPDATE coc.items SET opinion = $3, comment = $4, reviewed_at = $5, reviewed_by = $6
			WHERE case_id = $1 AND position = $2 AND opinion IS NULL`,
			c.ID, i, string(*item.Opinion), item.Comment, item.ReviewedAt, item.ReviewedBy,
		)
		if err != nil {
			return errors.Wrap(err, "failed to update item")
		}
	}
	if err := r.saveReassignments(ctx, tx, c); err != nil {
		return err
	}
	if err := r.saveEvents(ctx, tx, c); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	return nil
}

// FindByID finds a case by ID
func (r *PostgresCaseRepository) FindByID(ctx context.Context, id types.ID) (*domain.Case, error) {
	c, err := scanCase(r.pool.QueryRow(ctx, `SELECT `+caseColumns+` FROM coc.cases WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("case", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find case")
	}

	if err := r.loadItems(ctx, c); err != nil {
		return nil, err
	}
	if err := r.loadReassignments(ctx, c); err != nil {
		return nil, err
	}
	if err := r.loadEvents(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// FindByCaseNumber finds a case by case number
func (r *PostgresCaseRepository) FindByCaseNumber(ctx context.Context, caseNumber string) (*domain.Case, error) {
	var id types.ID
	err := r.pool.QueryRow(ctx, `SELECT id FROM coc.cases WHERE case_number = $1`, caseNumber).Scan(&id)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("case", caseNumber)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find case by number")
	}

	return r.FindByID(ctx, id)
}

// List lists cases with filters. Items are loaded, the timeline is not.
func (r *PostgresCaseRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Case, int, error) {
	var conditions []string
	var args []any
	argNum := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.Office != nil {
		conditions = append(conditions, fmt.Sprintf("office = $%d", argNum))
		args = append(args, *filter.Office)
		argNum++
	}

	if filter.AgentID != nil {
		conditions = append(conditions, fmt.Sprintf("agent_id = $%d", argNum))
		args = append(args, *filter.AgentID)
		argNum++
	}

	if filter.ApplicantID != nil {
		conditions = append(conditions, fmt.Sprintf("applicant_id = $%d", argNum))
		args = append(args, *filter.ApplicantID)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(case_number ILIKE $%d OR EXISTS (SELECT 1 FROM coc.items i WHERE i.case_id = cases.id AND i.product_name ILIKE $%d))",
			argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM coc.cases "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count cases")
	}

	query := fmt.Sprintf(`SELECT %s FROM coc.cases %s ORDER BY created_at DESC`, caseColumns, whereClause)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list cases")
	}
	defer rows.Close()

	cases := []domain.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan case")
		}
		cases = append(cases, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "failed to list cases")
	}
	rows.Close()

	for i := range cases {
		if err := r.loadItems(ctx, &cases[i]); err != nil {
			return nil, 0, err
		}
	}

	return cases, total, nil
}

// LatestCaseNumber returns the highest case number, "" when there is none.
// Numbers have a fixed width so text order is numeric order.
func (r *PostgresCaseRepository) LatestCaseNumber(ctx context.Context) (string, error) {
	var number string
	err := r.pool.QueryRow(ctx, `
		SELECT case_number FROM coc.cases
		WHERE case_number LIKE 'COC-%'
		ORDER BY case_number DESC
		LIMIT 1`).Scan(&number)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to find latest case number")
	}
	return number, nil
}

// --- Item operations ---

func (r *PostgresCaseRepository) saveItem(ctx context.Context, tx pgx.Tx, caseID types.ID, position int, item *domain.Item) error {
	query := `
		INSERT INTO coc.items (
			case_id, position, product_name, category, quantity, unit, declared_value,
			manufacturer, manufacturer_address, country_of_origin,
			opinion, comment, reviewed_at, reviewed_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(ctx, query,
		caseID, position, item.ProductName, item.Category, item.Quantity, item.Unit, item.DeclaredValue,
		item.Manufacturer, item.ManufacturerAddress, item.CountryOfOrigin,
		opinionValue(item.Opinion), item.Comment, item.ReviewedAt, item.ReviewedBy,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save item")
	}
	return nil
}

func (r *PostgresCaseRepository) loadItems(ctx context.Context, c *domain.Case) error {
	query := `
		SELECT product_name, category, quantity, unit, declared_value,
			manufacturer, manufacturer_address, country_of_origin,
			opinion, comment, reviewed_at, reviewed_by
		FROM coc.items
		WHERE case_id = $1
		ORDER BY position`

	rows, err := r.pool.Query(ctx, query, c.ID)
	if err != nil {
		return errors.Wrap(err, "failed to get items")
	}
	defer rows.Close()

	c.Items = []domain.Item{}
	for rows.Next() {
		var item domain.Item
		var opinion *string
		err := rows.Scan(
			&item.ProductName, &item.Category, &item.Quantity, &item.Unit, &item.DeclaredValue,
			&item.Manufacturer, &item.ManufacturerAddress, &item.CountryOfOrigin,
			&opinion, &item.Comment, &item.ReviewedAt, &item.ReviewedBy,
		)
		if err != nil {
			return errors.Wrap(err, "failed to scan item")
		}
		if opinion != nil {
			o := domain.Opinion(*opinion)
			item.Opinion = &o
		}
		c.Items = append(c.Items, item)
	}

	return rows.Err()
}

// --- Reassignment operations ---

// saveReassignments writes the records not stored yet. Records are append only
// and keyed by their position in the case history.
func (r *PostgresCaseRepository) saveReassignments(ctx context.Context, tx pgx.Tx, c *domain.Case) error {
	for i, rec := range c.Reassignments {
		_, err := tx.Exec(ctx, `
			INSERT INTO coc.reassignments (case_id, seq, agent_id, agent_name, from_agent_id, reassigned_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (case_id, seq) DO NOTHING`,
			c.ID, i, rec.AgentID, rec.AgentName, rec.FromAgentID, rec.ReassignedAt,
		)
		if err != nil {
			return errors.Wrap(err, "failed to save reassignment")
		}
	}
	return nil
}

func (r *PostgresCaseRepository) loadReassignments(ctx context.Context, c *domain.Case) error {
	rows, err := r.pool.Query(ctx, `
		SELECT agent_id, agent_name, from_agent_id, reassigned_at
		FROM coc.reassignments
		WHERE case_id = $1
		ORDER BY seq`, c.ID)
	if err != nil {
		return errors.Wrap(err, "failed to get reassignments")
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.ReassignmentRecord
		if err := rows.Scan(&rec.AgentID, &rec.AgentName, &rec.FromAgentID, &rec.ReassignedAt); err != nil {
			return errors.Wrap(err, "failed to scan reassignment")
		}
		c.Reassignments = append(c.Reassignments, rec)
	}

	return rows.Err()
}

// --- Event operations ---

func (r *PostgresCaseRepository) saveEvents(ctx context.Context, tx pgx.Tx, c *domain.Case) error {
	for _, e := range c.Events {
		dataJSON, err := json.Marshal(e.Data)
		if err != nil {
			return errors.Wrap(err, "failed to marshal event data")
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO coc.case_events (id, case_id, type, actor_id, description, data, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			e.ID, c.ID, e.Type, e.ActorID, e.Description, dataJSON, e.Timestamp,
		)
		if err != nil {
			return errors.Wrap(err, "failed to save event")
		}
	}
	return nil
}

func (r *PostgresCaseRepository) loadEvents(ctx context.Context, c *domain.Case) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, case_id, type, actor_id, description, data, timestamp
		FROM coc.case_events
		WHERE case_id = $1
		ORDER BY timestamp, id`, c.ID)
	if err != nil {
		return errors.Wrap(err, "failed to get events")
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.CaseEvent
		var dataJSON []byte
		if err := rows.Scan(&e.ID, &e.CaseID, &e.Type, &e.ActorID, &e.Description, &dataJSON, &e.Timestamp); err != nil {
			return errors.Wrap(err, "failed to scan event")
		}
		if err := json.Unmarshal(dataJSON, &e.Data); err != nil {
			e.Data = nil
		}
		c.Events = append(c.Events, e)
	}

	return rows.Err()
}

func scanCase(row pgx.Row) (*domain.Case, error) {
	c := &domain.Case{}
	var office string
	var decision *string
	var documentsJSON []byte
	var assignedAt, closedAt *time.Time

	err := row.Scan(
		&c.ID, &c.CaseNumber, &c.ApplicantID, &c.ApplicantRole, &c.Status,
		&office, &c.AgentID, &c.AgentName, &assignedAt,
		&decision, &documentsJSON,
		&c.CreatedAt, &c.UpdatedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Office = domain.Office(office)
	c.AssignedAt = assignedAt
	c.ClosedAt = closedAt
	if decision != nil {
		d := domain.Decision(*decision)
		c.Decision = &d
	}
	if err := json.Unmarshal(documentsJSON, &c.Documents); err != nil || c.Documents == nil {
		c.Documents = domain.Documents{}
	}

	return c, nil
}

func decisionValue(d *domain.Decision) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}

func opinionValue(o *domain.Opinion) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}
