package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "crew_planner"

var (
	AnnealingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "annealing_runs_total",
		Help:      "模拟退火运行次数，按结果（cooled/canceled/failed）分类",
	}, []string{"outcome"})

	AnnealingIterations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "annealing_iterations_total",
		Help:      "模拟退火累计迭代次数",
	})

	AcceptedMoves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "annealing_accepted_moves_total",
		Help:      "被接受的交换次数，按代价变化（improving/worsening）分类",
	}, []string{"kind"})

	SwapFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "annealing_swap_failures_total",
		Help:      "找不到同角色交换对象的次数",
	})

	FinalCost = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "annealing_final_cost",
		Help:      "模拟退火结束时的代价",
		Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "annealing_run_duration_seconds",
		Help:      "单次模拟退火的耗时",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "已处理的 HTTP 请求数",
	}, []string{"method", "status"})
)
