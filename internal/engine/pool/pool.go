// Package pool builds a seeded candidate agent pool and selects the fixed
// set of agents an engine instance assigns to one issue, per spec.md §6
// ("Initial agent selection: an agent pool, a selection count, and seeded
// RNG for reproducibility"). Grounded on
// original_source/simulator/simulator.py's pool generation (random.seed +
// randint pool sizing, 3x-5x oversampling of num_agents).
package pool

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// Candidate is one member of the generated pool, before selection.
type Candidate struct {
	AgentID        string
	InitialBalance int
}

// GeneratePool creates a pool of candidates sized between 3x and 5x
// numAgents (minimum 6, maximum 49, per the original's bounds), seeded by
// poolSeed for reproducibility. Balances are drawn in [0, 300].
func GeneratePool(poolSeed uint64, numAgents int) []Candidate {
	rng := rand.New(rand.NewPCG(poolSeed, poolSeed^0x9e3779b97f4a7c15))

	minSize := max(6, numAgents*3)
	maxSize := min(49, numAgents*5)
	if maxSize < minSize {
		maxSize = minSize
	}
	size := minSize
	if maxSize > minSize {
		size = minSize + rng.IntN(maxSize-minSize+1)
	}

	candidates := make([]Candidate, size)
	for i := range candidates {
		candidates[i] = Candidate{
			AgentID:        fmt.Sprintf("agent-%04d", i),
			InitialBalance: rng.IntN(301),
		}
	}
	return candidates
}

// Select deterministically picks numAgents candidates from pool using
// runSeed, sorted by agent id before sampling so the choice depends only on
// the seed and pool contents, never on map/slice iteration order.
func Select(pool []Candidate, runSeed uint64, numAgents int) []Candidate {
	if numAgents > len(pool) {
		numAgents = len(pool)
	}
	sorted := make([]Candidate, len(pool))
	copy(sorted, pool)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AgentID < sorted[j].AgentID })

	rng := rand.New(rand.NewPCG(runSeed, runSeed^0x2545f4914f6cdd1d))
	rng.Shuffle(len(sorted), func(i, j int) { sorted[i], sorted[j] = sorted[j], sorted[i] })

	selected := make([]Candidate, numAgents)
	copy(selected, sorted[:numAgents])
	sort.Slice(selected, func(i, j int) bool { return selected[i].AgentID < selected[j].AgentID })
	return selected
}

// Balances returns the initial-balance map for the selected candidates,
// with assignmentAward added to each (spec.md §6: "CP granted to each
// assigned agent at engine start").
func Balances(selected []Candidate, assignmentAward int) map[string]int {
	balances := make(map[string]int, len(selected))
	for _, c := range selected {
		balances[c.AgentID] = c.InitialBalance + assignmentAward
	}
	return balances
}
