package repository

import (
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
)

const crewPlanColumns = `id, name, description, season_start, season_end, created_at, version`

func scanCrewPlan(row rowScanner) (*domain.CrewPlan, error) {
	plan := &domain.CrewPlan{}
	dst := []any{&plan.ID, &plan.Name, &plan.Description, &plan.SeasonStart, &plan.SeasonEnd, &plan.CreatedAt, &plan.Version}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *Repository) GetAllCrewPlans() ([]*domain.CrewPlan, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, `SELECT `+crewPlanColumns+` FROM crew_plans ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []*domain.CrewPlan{}
	for rows.Next() {
		plan, err := scanCrewPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *Repository) GetCrewPlanByID(id int64) (*domain.CrewPlan, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	return scanCrewPlan(r.dbpool.QueryRowContext(ctx, `SELECT `+crewPlanColumns+` FROM crew_plans WHERE id = $1`, id))
}

func (r *Repository) CreateCrewPlan(plan *domain.CrewPlan) error {
	query := `
		INSERT INTO crew_plans (name, description, season_start, season_end)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{plan.Name, plan.Description, plan.SeasonStart, plan.SeasonEnd}
	dst := []any{&plan.ID, &plan.CreatedAt, &plan.Version}
	return r.dbpool.QueryRowContext(ctx, query, params...).Scan(dst...)
}

func (r *Repository) UpdateCrewPlan(plan *domain.CrewPlan) error {
	query := `
		UPDATE crew_plans
		SET
			name = $1,
			description = $2,
			season_start = $3,
			season_end = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{plan.Name, plan.Description, plan.SeasonStart, plan.SeasonEnd, plan.ID, plan.Version}
	return r.dbpool.QueryRowContext(ctx, query, params...).Scan(&plan.Version)
}

// DeleteCrewPlan 队员和分队结果通过外键级联删除
func (r *Repository) DeleteCrewPlan(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, `DELETE FROM crew_plans WHERE id = $1`, id)
	return err
}
