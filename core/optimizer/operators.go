package optimizer

import "math/rand"

// initPopulation builds the initial population. Individual 0 is a greedy
// round-robin assignment over robots; the rest draw uniform random genes
// from rng, in individual-then-gene order.
func initPopulation(rng *rand.Rand, size, chromosomeLen, robotCount int) []chromosome {
	population := make([]chromosome, size)
	if chromosomeLen == 0 {
		for i := range population {
			population[i] = chromosome{}
		}
		return population
	}
	if size > 0 {
		greedy := make(chromosome, chromosomeLen)
		for k := range greedy {
			greedy[k] = k % robotCount
		}
		population[0] = greedy
	}
	for i := 1; i < size; i++ {
		ch := make(chromosome, chromosomeLen)
		for k := range ch {
			ch[k] = rng.Intn(robotCount)
		}
		population[i] = ch
	}
	return population
}

// tournamentSelect draws k candidate indices from rng and returns a copy of
// the fittest, ties broken by ascending index.
func tournamentSelect(rng *rand.Rand, population []chromosome, fitness []float64, k int) chromosome {
	bestIdx := -1
	var bestFitness float64
	for i := 0; i < k; i++ {
		idx := rng.Intn(len(population))
		if bestIdx == -1 || fitness[idx] < bestFitness || (fitness[idx] == bestFitness && idx < bestIdx) {
			bestIdx = idx
			bestFitness = fitness[idx]
		}
	}
	out := make(chromosome, len(population[bestIdx]))
	copy(out, population[bestIdx])
	return out
}

// crossover performs one-point crossover between two parents; the cut index
// is drawn from rng. Chromosomes of length <= 1 are returned unchanged.
func crossover(rng *rand.Rand, a, b chromosome) (chromosome, chromosome) {
	if len(a) <= 1 {
		ca := make(chromosome, len(a))
		cb := make(chromosome, len(b))
		copy(ca, a)
		copy(cb, b)
		return ca, cb
	}
	point := 1 + rng.Intn(len(a)-1)
	childA := make(chromosome, len(a))
	childB := make(chromosome, len(a))
	copy(childA[:point], a[:point])
	copy(childA[point:], b[point:])
	copy(childB[:point], b[:point])
	copy(childB[point:], a[point:])
	return childA, childB
}

// mutate flips each gene independently with probability rate, drawing a
// replacement uniformly from [0, robotCount).
func mutate(rng *rand.Rand, ch chromosome, robotCount int, rate float64) chromosome {
	for i := range ch {
		if rng.Float64() < rate {
			ch[i] = rng.Intn(robotCount)
		}
	}
	return ch
}
