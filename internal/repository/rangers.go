package repository

import (
	"context"
	"database/sql"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
)

// 偏好的种类
const (
	preferenceSame      = "same"
	preferenceDifferent = "different"
)

func (r *Repository) GetRangersByCrewPlanID(crewPlanID int64) ([]*domain.Ranger, error) {
	return r.queryRangers(`WHERE r.crew_plan_id = $1`, crewPlanID)
}

func (r *Repository) GetRangerByID(crewPlanID, id int64) (*domain.Ranger, error) {
	rangers, err := r.queryRangers(`WHERE r.crew_plan_id = $1 AND r.id = $2`, crewPlanID, id)
	if err != nil {
		return nil, err
	}
	if len(rangers) == 0 {
		return nil, sql.ErrNoRows
	}
	return rangers[0], nil
}

func (r *Repository) queryRangers(where string, args ...any) ([]*domain.Ranger, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT
			r.id,
			r.crew_plan_id,
			r.name,
			r.role,
			r.gender,
			r.years_of_experience,
			r.fitness_certification,
			r.mixed_crew_restriction,
			r.start_date,
			r.end_date,
			r.created_at,
			r.version,
			p.kind,
			p.name
		FROM rangers r
		LEFT JOIN ranger_crew_preferences p ON r.id = p.ranger_id
		` + where + `
		ORDER BY r.id, p.kind, p.position
	`

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// 保持按 id 排序，队员在名单中的顺序决定了分队时的下标
	rangers := make([]*domain.Ranger, 0)
	var current *domain.Ranger

	for rows.Next() {
		var row struct {
			ranger         domain.Ranger
			preferenceKind sql.NullString
			preferenceName sql.NullString
		}

		dst := []any{
			&row.ranger.ID,
			&row.ranger.CrewPlanID,
			&row.ranger.Name,
			&row.ranger.Role,
			&row.ranger.Gender,
			&row.ranger.YearsOfExperience,
			&row.ranger.FitnessCertification,
			&row.ranger.MixedCrewRestriction,
			&row.ranger.StartDate,
			&row.ranger.EndDate,
			&row.ranger.CreatedAt,
			&row.ranger.Version,
			&row.preferenceKind,
			&row.preferenceName,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if current == nil || current.ID != row.ranger.ID {
			// 第一次查到这名队员
			current = &row.ranger
			current.SameCrewPreferences = make([]string, 0)
			current.DifferentCrewPreferences = make([]string, 0)
			rangers = append(rangers, current)
		}

		// 该队员没有任何偏好
		if !row.preferenceKind.Valid {
			continue
		}

		switch row.preferenceKind.String {
		case preferenceSame:
			current.SameCrewPreferences = append(current.SameCrewPreferences, row.preferenceName.String)
		case preferenceDifferent:
			current.DifferentCrewPreferences = append(current.DifferentCrewPreferences, row.preferenceName.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rangers, nil
}

func (r *Repository) CreateRanger(ranger *domain.Ranger) error {
	return r.CreateRangers([]*domain.Ranger{ranger})
}

// CreateRangers 在同一个事务中插入多名队员，任何一名失败都会回滚
func (r *Repository) CreateRangers(rangers []*domain.Ranger) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO rangers (
			crew_plan_id,
			name,
			role,
			gender,
			years_of_experience,
			fitness_certification,
			mixed_crew_restriction,
			start_date,
			end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, version
	`

	for _, ranger := range rangers {
		params := []any{
			ranger.CrewPlanID,
			ranger.Name,
			ranger.Role,
			ranger.Gender,
			ranger.YearsOfExperience,
			ranger.FitnessCertification,
			ranger.MixedCrewRestriction,
			ranger.StartDate,
			ranger.EndDate,
		}
		dst := []any{&ranger.ID, &ranger.CreatedAt, &ranger.Version}
		if err := tx.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
			return err
		}

		if err := insertPreferences(ctx, tx, ranger); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) UpdateRanger(ranger *domain.Ranger) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE rangers
		SET
			name = $1,
			role = $2,
			gender = $3,
			years_of_experience = $4,
			fitness_certification = $5,
			mixed_crew_restriction = $6,
			start_date = $7,
			end_date = $8,
			version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING version
	`

	params := []any{
		ranger.Name,
		ranger.Role,
		ranger.Gender,
		ranger.YearsOfExperience,
		ranger.FitnessCertification,
		ranger.MixedCrewRestriction,
		ranger.StartDate,
		ranger.EndDate,
		ranger.ID,
		ranger.Version,
	}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&ranger.Version); err != nil {
		return err
	}

	// 偏好整体替换
	if _, err := tx.ExecContext(ctx, `DELETE FROM ranger_crew_preferences WHERE ranger_id = $1`, ranger.ID); err != nil {
		return err
	}
	if err := insertPreferences(ctx, tx, ranger); err != nil {
		return err
	}

	return tx.Commit()
}

func insertPreferences(ctx context.Context, tx *sql.Tx, ranger *domain.Ranger) error {
	query := `
		INSERT INTO ranger_crew_preferences (ranger_id, kind, position, name)
		VALUES ($1, $2, $3, $4)
	`

	groups := []struct {
		kind  string
		names []string
	}{
		{preferenceSame, ranger.SameCrewPreferences},
		{preferenceDifferent, ranger.DifferentCrewPreferences},
	}

	for _, group := range groups {
		for i, name := range group.names {
			if _, err := tx.ExecContext(ctx, query, ranger.ID, group.kind, i, name); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *Repository) DeleteRanger(crewPlanID, id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, `DELETE FROM rangers WHERE crew_plan_id = $1 AND id = $2`, crewPlanID, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// CountRangers 返回计划中的队员人数，用于生成分队前的快速检查
func (r *Repository) CountRangers(crewPlanID int64) (int, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	var n int
	err := r.dbpool.QueryRowContext(ctx, `SELECT COUNT(*) FROM rangers WHERE crew_plan_id = $1`, crewPlanID).Scan(&n)
	return n, err
}
