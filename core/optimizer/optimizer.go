package optimizer

import (
	"math"
	"math/rand"
	"sort"

	"github.com/kilianp07/amrfleet/core/model"
)

const tournamentSize = 3

// Result carries the GA run's metadata alongside the assignments: best
// score, generations, population size and seed.
type Result struct {
	BestScore      float64
	Generations    int
	PopulationSize int
	Seed           int64
}

// Optimize is the stateless GA entry point: optimize(seed, robots,
// pending_jobs, sim_time_s) -> assignments. Robots and jobs are sorted into
// canonical order on entry (robots by id ascending; jobs by
// (deadline_ts, -priority, id)). Empty pending_jobs returns an empty list.
//
// Determinism contract: identical inputs produce a byte-identical output;
// only rng, seeded from seed, drives every random choice.
func Optimize(cfg Config, seed int64, robots []model.Robot, pendingJobs []model.Job, simTimeS float64) ([]model.Assignment, Result) {
	canonicalRobots := append([]model.Robot(nil), robots...)
	sort.Slice(canonicalRobots, func(i, j int) bool { return canonicalRobots[i].ID < canonicalRobots[j].ID })

	canonicalJobs := append([]model.Job(nil), pendingJobs...)
	sort.Slice(canonicalJobs, func(i, j int) bool { return canonicalJobs[i].Less(canonicalJobs[j]) })

	meta := Result{Generations: cfg.Generations, PopulationSize: cfg.PopulationSize, Seed: seed}

	if len(canonicalJobs) == 0 || len(canonicalRobots) == 0 {
		return []model.Assignment{}, meta
	}

	rng := rand.New(rand.NewSource(seed))
	robotCount := len(canonicalRobots)
	chromosomeLen := len(canonicalJobs)

	population := initPopulation(rng, cfg.PopulationSize, chromosomeLen, robotCount)

	var best chromosome
	bestScore := math.Inf(1)

	for gen := 0; gen < cfg.Generations; gen++ {
		fitness := make([]float64, len(population))
		for i, ch := range population {
			fitness[i] = evaluate(cfg, ch, canonicalRobots, canonicalJobs, simTimeS)
		}

		order := make([]int, len(population))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			ia, ib := order[a], order[b]
			if fitness[ia] != fitness[ib] {
				return fitness[ia] < fitness[ib]
			}
			return lessLexicographic(population[ia], population[ib])
		})

		sortedPopulation := make([]chromosome, len(population))
		sortedFitness := make([]float64, len(population))
		for i, idx := range order {
			sortedPopulation[i] = population[idx]
			sortedFitness[i] = fitness[idx]
		}

		if sortedFitness[0] < bestScore {
			bestScore = sortedFitness[0]
			best = sortedPopulation[0]
		}

		eliteSize := cfg.EliteSize
		if eliteSize > len(sortedPopulation) {
			eliteSize = len(sortedPopulation)
		}
		next := make([]chromosome, 0, cfg.PopulationSize)
		for i := 0; i < eliteSize; i++ {
			cp := make(chromosome, len(sortedPopulation[i]))
			copy(cp, sortedPopulation[i])
			next = append(next, cp)
		}

		for len(next) < cfg.PopulationSize {
			parentA := tournamentSelect(rng, sortedPopulation, sortedFitness, tournamentSize)
			parentB := tournamentSelect(rng, sortedPopulation, sortedFitness, tournamentSize)

			var childA, childB chromosome
			if rng.Float64() < cfg.CrossoverRate {
				childA, childB = crossover(rng, parentA, parentB)
			} else {
				childA = append(chromosome(nil), parentA...)
				childB = append(chromosome(nil), parentB...)
			}

			next = append(next, mutate(rng, childA, robotCount, cfg.MutationRate))
			if len(next) < cfg.PopulationSize {
				next = append(next, mutate(rng, childB, robotCount, cfg.MutationRate))
			}
		}

		population = next
	}

	meta.BestScore = bestScore

	assignments := make([]model.Assignment, 0, len(canonicalJobs))
	for k, job := range canonicalJobs {
		robot := canonicalRobots[best[k]%robotCount]
		assignments = append(assignments, model.Assignment{
			JobID:   job.ID,
			RobotID: robot.ID,
			Score:   bestScore,
		})
	}
	return assignments, meta
}

func lessLexicographic(a, b chromosome) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
