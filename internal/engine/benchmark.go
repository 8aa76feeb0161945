package engine

import "github.com/crmscanstack/crmscan-engine/internal/models"

// CompareToBenchmark positions a scan against its cohort averages.
func CompareToBenchmark(cohort string, efficiency models.Efficiency, averages models.BenchmarkAverages) *models.Benchmark {
	benchmark := &models.Benchmark{
		Cohort:    cohort,
		Benchmark: averages,
	}
	benchmark.Comparison.EfficiencyDelta = efficiency.Score - averages.AvgEfficiency
	return benchmark
}
