package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/utils"
)

func quickParameters(seed int64) *Parameters {
	return &Parameters{
		InitialTemperature: 100,
		CoolingRate:        0.99,
		FinalTemperature:   0.01,
		Seed:               seed,
	}
}

func TestParametersValidate(t *testing.T) {
	require.NoError(t, DefaultParameters().Validate())

	invalid := []*Parameters{
		{InitialTemperature: 0, CoolingRate: 0.9, FinalTemperature: 1},
		{InitialTemperature: 10, CoolingRate: 1, FinalTemperature: 1},
		{InitialTemperature: 10, CoolingRate: 0, FinalTemperature: 1},
		{InitialTemperature: 10, CoolingRate: 0.9, FinalTemperature: 0},
		{InitialTemperature: 10, CoolingRate: 0.9, FinalTemperature: 1, LogEvery: -1},
	}
	for _, p := range invalid {
		require.ErrorIs(t, p.Validate(), ErrInvalidParameters)
	}

	r := buildRoster(t, twoCrewRecords())
	_, err := New(invalid[1], r)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestIterationCount(t *testing.T) {
	r := buildRoster(t, twoCrewRecords())
	s, err := New(&Parameters{InitialTemperature: 10, CoolingRate: 0.9, FinalTemperature: 1}, r)
	require.NoError(t, err)

	res, err := s.Optimize(context.Background(), twoCrewAssignment, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	// 10 * 0.9^k > 1 当且仅当 k <= 21
	require.Equal(t, 22, res.Iterations)
}

func TestDefaultIterationCount(t *testing.T) {
	if testing.Short() {
		t.Skip("完整的退火过程较慢")
	}

	r := buildRoster(t, twoCrewRecords())
	p := DefaultParameters()
	p.LogEvery = 0

	s, err := New(p, r)
	require.NoError(t, err)

	res, err := s.Optimize(context.Background(), twoCrewAssignment, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	// ln(1e-8) / ln(0.9999) 约为 184198
	require.InDelta(t, 184198, res.Iterations, 2)
}

func TestOptimizeKeepsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	r := buildRoster(t, randomRecords(rng, 23))

	for seed := int64(0); seed < 5; seed++ {
		s, err := New(quickParameters(seed), r)
		require.NoError(t, err)

		initial := r.InitialAssignment(rand.New(rand.NewSource(seed)))
		snapshot := initial.Clone()

		res, err := s.Optimize(context.Background(), initial, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)

		// 初始方案不被修改
		require.Equal(t, snapshot, initial)

		require.NoError(t, utils.ValidateCrewAssignmentWithRoster(res.Assignment, r))
		require.NoError(t, utils.ValidateRoleBalance(r, initial, res.Assignment))

		// 增量计算的代价必须与完整计算一致
		require.Equal(t, s.Evaluator().Evaluate(res.Assignment), res.Cost)
		require.Equal(t, res.Cost, res.Breakdown.Total)

		require.LessOrEqual(t, res.WorseAccepted, res.Accepted)
		require.LessOrEqual(t, res.Accepted+res.SwapFailures, res.Iterations)
	}
}

func TestOptimizeFindsBalancedCrews(t *testing.T) {
	records := []*domain.Ranger{
		newRecord("L0", domain.RangerRoleLeader),
		newRecord("L1", domain.RangerRoleLeader),
		newRecord("B0", domain.RangerRoleBoss),
		newRecord("B1", domain.RangerRoleBoss),
	}
	for i, exp := range []int32{1, 1, 3, 3} {
		record := newRecord(fmt.Sprintf("M%d", i), domain.RangerRoleMember)
		record.YearsOfExperience = exp
		records = append(records, record)
	}
	// 两名新手不希望同队，与经验均衡的目标一致
	records[4].DifferentCrewPreferences = []string{"M1"}
	r := buildRoster(t, records)

	// 两名新手在同一队时代价为 10 + 25
	initial := roster.Assignment{1, 2, 1, 2, 1, 1, 2, 2}
	e := NewEvaluator(r)
	require.Equal(t, 35, e.Evaluate(initial))

	p := DefaultParameters()
	p.LogEvery = 0
	res, err := Optimize(context.Background(), r, initial, 5, *p)
	require.NoError(t, err)

	require.Equal(t, 0, res.Cost)
	require.NotEqual(t, res.Assignment[4], res.Assignment[5])
	require.Equal(t, int64(5), res.Seed)
}

func TestOptimizeSatisfiesSameCrewPreference(t *testing.T) {
	if testing.Short() {
		t.Skip("完整的退火过程较慢")
	}

	records := twoCrewRecords()
	records[2].SameCrewPreferences = []string{"M3"} // M0 希望与 M3 同队
	r := buildRoster(t, records)

	// M0 在分队 1，M3 在分队 2
	e := NewEvaluator(r)
	require.Equal(t, 10, e.Evaluate(twoCrewAssignment))

	p := DefaultParameters()
	p.LogEvery = 0
	for seed := int64(0); seed < 3; seed++ {
		res, err := Optimize(context.Background(), r, twoCrewAssignment, seed, *p)
		require.NoError(t, err)

		require.Equal(t, 0, res.Cost, "seed %d", seed)
		require.Equal(t, res.Assignment[2], res.Assignment[5], "seed %d", seed)
		require.InDelta(t, 184198, res.Iterations, 2)
	}
}

func TestScheduleDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	r := buildRoster(t, randomRecords(rng, 18))

	run := func() *Result {
		s, err := New(quickParameters(99), r)
		require.NoError(t, err)
		res, err := s.Schedule(context.Background())
		require.NoError(t, err)
		return res
	}

	first, second := run(), run()
	require.Equal(t, first.Assignment, second.Assignment)
	require.Equal(t, first.Cost, second.Cost)
	require.Equal(t, first.Accepted, second.Accepted)
	require.Equal(t, int64(99), first.Seed)
}

func TestScheduleBest(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	r := buildRoster(t, randomRecords(rng, 21))

	const restarts = 4
	costs := make([]int, restarts)
	for i := 0; i < restarts; i++ {
		s, err := New(quickParameters(int64(100+i)), r)
		require.NoError(t, err)
		res, err := s.Schedule(context.Background())
		require.NoError(t, err)
		costs[i] = res.Cost
	}

	// 代价最小且下标最小的那次
	want := 0
	for i, c := range costs {
		if c < costs[want] {
			want = i
		}
	}

	s, err := New(quickParameters(100), r)
	require.NoError(t, err)
	best, err := s.ScheduleBest(context.Background(), restarts)
	require.NoError(t, err)

	require.Equal(t, costs[want], best.Cost)
	require.Equal(t, int64(100+want), best.Seed)
}

func TestOptimizeCanceled(t *testing.T) {
	r := buildRoster(t, twoCrewRecords())
	s, err := New(DefaultParameters(), r)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Optimize(ctx, twoCrewAssignment, rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	require.Zero(t, res.Iterations)
	require.Equal(t, twoCrewAssignment, res.Assignment)

	_, err = s.ScheduleBest(ctx, 3)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptimizeRejectsInvalidAssignment(t *testing.T) {
	r := buildRoster(t, twoCrewRecords())
	s, err := New(quickParameters(1), r)
	require.NoError(t, err)

	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	_, err = s.Optimize(ctx, roster.Assignment{1, 2, 1}, rng)
	require.Error(t, err)

	// 分队 1 有 5 人
	_, err = s.Optimize(ctx, roster.Assignment{1, 2, 1, 1, 1, 1, 2, 2}, rng)
	require.Error(t, err)

	// 分队 2 没有领导
	_, err = s.Optimize(ctx, roster.Assignment{1, 1, 1, 1, 2, 2, 2, 2}, rng)
	require.Error(t, err)
}
