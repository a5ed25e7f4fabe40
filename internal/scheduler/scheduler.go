package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/roster"
	"github.com/sysu-ecnc-dev/crew-planner/backend/internal/utils"
	"golang.org/x/sync/errgroup"
)

// 每隔多少次迭代检查一次 context 是否已取消
const cancelCheckInterval = 1024

type Scheduler struct {
	parameters *Parameters
	roster     *roster.Roster
	evaluator  *Evaluator
	logger     *slog.Logger
}

func New(parameters *Parameters, r *roster.Roster) (*Scheduler, error) {
	if err := parameters.Validate(); err != nil {
		return nil, err
	}

	return &Scheduler{
		parameters: parameters,
		roster:     r,
		evaluator:  NewEvaluator(r),
		logger:     slog.Default(),
	}, nil
}

func (s *Scheduler) Evaluator() *Evaluator {
	return s.evaluator
}

// Optimize 等价于 scheduler.New(parameters, r) 之后用 seed 对 initial 做一次退火
func Optimize(ctx context.Context, r *roster.Roster, initial roster.Assignment, seed int64, parameters Parameters) (*Result, error) {
	parameters.Seed = seed

	s, err := New(&parameters, r)
	if err != nil {
		return nil, err
	}

	return s.Optimize(ctx, initial, rand.New(rand.NewSource(seed)))
}

// Schedule 用参数中的随机数种子生成初始方案并退火
func (s *Scheduler) Schedule(ctx context.Context) (*Result, error) {
	rng := rand.New(rand.NewSource(s.parameters.Seed))
	initial := s.roster.InitialAssignment(rng)

	res, err := s.Optimize(ctx, initial, rng)
	if err != nil {
		return nil, err
	}
	res.Seed = s.parameters.Seed

	return res, nil
}

// ScheduleBest 并行地进行 restarts 次相互独立的退火（第 i 次使用种子 Seed+i），返回代价最小的结果
func (s *Scheduler) ScheduleBest(ctx context.Context, restarts int) (*Result, error) {
	if restarts <= 1 {
		return s.Schedule(ctx)
	}

	results := make([]*Result, restarts)
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < restarts; i++ {
		g.Go(func() error {
			seed := s.parameters.Seed + int64(i)
			rng := rand.New(rand.NewSource(seed))
			initial := s.roster.InitialAssignment(rng)

			run := &Scheduler{
				parameters: s.parameters,
				roster:     s.roster,
				evaluator:  s.evaluator,
				logger:     s.logger.With("run", i),
			}

			res, err := run.Optimize(ctx, initial, rng)
			if err != nil {
				return err
			}
			res.Seed = seed
			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := results[0]
	for _, res := range results[1:] {
		if res.Cost < best.Cost {
			best = res
		}
	}

	s.logger.Info("多次退火完成", "restarts", restarts, "bestSeed", best.Seed, "bestCost", best.Cost)

	return best, nil
}

// Optimize 从 initial 出发进行模拟退火，initial 不会被修改。
// 迭代次数只取决于温度参数，约为 ln(Tend/T0) / ln(coolingRate)。
// context 被取消时返回当前方案以及 ctx.Err()。
func (s *Scheduler) Optimize(ctx context.Context, initial roster.Assignment, rng *rand.Rand) (*Result, error) {
	if err := utils.ValidateCrewAssignmentWithRoster(initial, s.roster); err != nil {
		metrics.AnnealingRuns.WithLabelValues("failed").Inc()
		return nil, err
	}

	start := time.Now()

	current := initial.Clone()
	crews := s.roster.Crews(current)
	scores := make([]crewScore, len(crews))
	for i, crew := range crews {
		scores[i] = s.evaluator.scoreCrew(crew)
	}
	cost := roundCost(s.evaluator.total(scores))

	res := &Result{Seed: s.parameters.Seed}
	temperature := s.parameters.InitialTemperature
	st := stateRunning

	s.logger.Info("开始模拟退火",
		"rangers", s.roster.Len(),
		"crews", len(crews),
		"initialCost", cost,
		"initialTemperature", temperature,
		"coolingRate", s.parameters.CoolingRate,
		"finalTemperature", s.parameters.FinalTemperature,
	)

	var runErr error
	for st == stateRunning {
		if temperature <= s.parameters.FinalTemperature {
			st = stateCooled
			break
		}

		if res.Iterations%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				runErr = err
				break
			}
		}

		move, err := proposeSwap(rng, s.roster, crews)
		if err != nil {
			// 没有可交换的队员，视为一次被拒绝的移动
			res.SwapFailures++
		} else {
			a, b := move.FirstCrew-1, move.SecondCrew-1
			candA := replaceMember(crews[a], move.First, move.Second)
			candB := replaceMember(crews[b], move.Second, move.First)

			oldA, oldB := scores[a], scores[b]
			scores[a], scores[b] = s.evaluator.scoreCrew(candA), s.evaluator.scoreCrew(candB)
			candCost := roundCost(s.evaluator.total(scores))

			if accept(rng, cost, candCost, temperature) {
				crews[a], crews[b] = candA, candB
				current[move.First], current[move.Second] = move.SecondCrew, move.FirstCrew
				res.Accepted++
				if candCost > cost {
					res.WorseAccepted++
				}
				cost = candCost
			} else {
				scores[a], scores[b] = oldA, oldB
			}
		}

		res.Iterations++
		if s.parameters.LogEvery > 0 && res.Iterations%s.parameters.LogEvery == 0 {
			s.logger.Info("退火进行中", "iteration", res.Iterations, "cost", cost, "temperature", temperature)
		}

		temperature *= s.parameters.CoolingRate
	}

	res.Assignment = current
	res.Cost = cost
	res.Breakdown = s.evaluator.Explain(current)
	res.Duration = time.Since(start)

	s.observe(res, runErr)

	if runErr != nil {
		s.logger.Warn("模拟退火被取消", "iterations", res.Iterations, "cost", cost)
		return res, runErr
	}

	// 交换只发生在同角色队员之间，因此各分队的角色分布不应变化
	if err := utils.ValidateRoleBalance(s.roster, initial, current); err != nil {
		return nil, err
	}

	s.logger.Info("模拟退火完成",
		"iterations", res.Iterations,
		"accepted", res.Accepted,
		"worseAccepted", res.WorseAccepted,
		"swapFailures", res.SwapFailures,
		"cost", cost,
		"duration", res.Duration,
	)

	return res, nil
}

func (s *Scheduler) observe(res *Result, err error) {
	outcome := "cooled"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	case err != nil:
		outcome = "failed"
	}

	metrics.AnnealingRuns.WithLabelValues(outcome).Inc()
	metrics.AnnealingIterations.Add(float64(res.Iterations))
	metrics.AcceptedMoves.WithLabelValues("improving").Add(float64(res.Accepted - res.WorseAccepted))
	metrics.AcceptedMoves.WithLabelValues("worsening").Add(float64(res.WorseAccepted))
	metrics.SwapFailures.Add(float64(res.SwapFailures))
	metrics.FinalCost.Observe(float64(res.Cost))
	metrics.RunDuration.Observe(res.Duration.Seconds())
}
