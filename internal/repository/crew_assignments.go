package repository

import (
	"database/sql"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
)

// InsertCrewAssignmentResult 每个计划只保留最新的一份分队结果
func (r *Repository) InsertCrewAssignmentResult(result *domain.CrewAssignmentResult) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 先将之前的分队结果删除
	if _, err := tx.ExecContext(ctx, `DELETE FROM crew_assignment_results WHERE crew_plan_id = $1`, result.CrewPlanID); err != nil {
		return err
	}

	query := `
		INSERT INTO crew_assignment_results (
			crew_plan_id,
			cost,
			iterations,
			initial_temperature,
			cooling_rate,
			final_temperature,
			seed,
			preference_cost,
			understaffing_cost,
			mixed_crew_cost,
			certification_cost,
			experience_cost
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, version
	`

	params := []any{
		result.CrewPlanID,
		result.Cost,
		result.Iterations,
		result.InitialTemperature,
		result.CoolingRate,
		result.FinalTemperature,
		result.Seed,
		result.Breakdown.Preference,
		result.Breakdown.Understaffing,
		result.Breakdown.MixedCrew,
		result.Breakdown.Certification,
		result.Breakdown.Experience,
	}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&result.ID, &result.CreatedAt, &result.Version); err != nil {
		return err
	}

	query = `
		INSERT INTO crew_assignment_members (result_id, crew_id, ranger_id)
		VALUES ($1, $2, $3)
	`
	for _, crew := range result.Crews {
		for _, rangerID := range crew.RangerIDs {
			if _, err := tx.ExecContext(ctx, query, result.ID, crew.CrewID, rangerID); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (r *Repository) GetCrewAssignmentResultByCrewPlanID(crewPlanID int64) (*domain.CrewAssignmentResult, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT
			car.id,
			car.cost,
			car.iterations,
			car.initial_temperature,
			car.cooling_rate,
			car.final_temperature,
			car.seed,
			car.preference_cost,
			car.understaffing_cost,
			car.mixed_crew_cost,
			car.certification_cost,
			car.experience_cost,
			car.created_at,
			car.version,
			cam.crew_id,
			cam.ranger_id
		FROM crew_assignment_results car
		LEFT JOIN crew_assignment_members cam ON car.id = cam.result_id
		WHERE car.crew_plan_id = $1
		ORDER BY cam.crew_id, cam.ranger_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, crewPlanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result *domain.CrewAssignmentResult

	for rows.Next() {
		var row struct {
			result   domain.CrewAssignmentResult
			crewID   sql.NullInt32
			rangerID sql.NullInt64
		}

		dst := []any{
			&row.result.ID,
			&row.result.Cost,
			&row.result.Iterations,
			&row.result.InitialTemperature,
			&row.result.CoolingRate,
			&row.result.FinalTemperature,
			&row.result.Seed,
			&row.result.Breakdown.Preference,
			&row.result.Breakdown.Understaffing,
			&row.result.Breakdown.MixedCrew,
			&row.result.Breakdown.Certification,
			&row.result.Breakdown.Experience,
			&row.result.CreatedAt,
			&row.result.Version,
			&row.crewID,
			&row.rangerID,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if result == nil {
			result = &row.result
			result.CrewPlanID = crewPlanID
			result.Crews = make([]domain.CrewAssignmentCrew, 0)
		}

		// 队员被删除后结果中可能没有成员
		if !row.crewID.Valid || !row.rangerID.Valid {
			continue
		}

		n := len(result.Crews)
		if n == 0 || result.Crews[n-1].CrewID != row.crewID.Int32 {
			result.Crews = append(result.Crews, domain.CrewAssignmentCrew{
				CrewID:    row.crewID.Int32,
				RangerIDs: make([]int64, 0, 5),
			})
			n++
		}
		result.Crews[n-1].RangerIDs = append(result.Crews[n-1].RangerIDs, row.rangerID.Int64)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if result == nil {
		return nil, sql.ErrNoRows
	}

	return result, nil
}
