package scheduler

import (
	"math"
	"math/rand"
)

// AcceptanceProbability Metropolis 准则：代价不变或变小时必然接受，
// 否则以 exp(-(candidate-current)/T) 的概率接受
func AcceptanceProbability(current, candidate int, temperature float64) float64 {
	if candidate <= current {
		return 1
	}
	if temperature <= 0 {
		return 0
	}
	return math.Exp(-float64(candidate-current) / temperature)
}

func accept(rng *rand.Rand, current, candidate int, temperature float64) bool {
	if candidate <= current {
		return true
	}
	return rng.Float64() < AcceptanceProbability(current, candidate, temperature)
}
