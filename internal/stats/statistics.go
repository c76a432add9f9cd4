// Package stats computes descriptive statistics over raw sensor samples.
package stats

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ponytojas/go-timescale-records/internal/models"
)

// Options controls which optional statistics are computed
type Options struct {
	IncludeMode bool
}

// Filter parses every raw value as a float64. Values that cannot be parsed,
// or that are not finite, are dropped; dropped is their count.
func Filter(raw []any) (sample []float64, dropped int) {
	sample = make([]float64, 0, len(raw))
	for _, v := range raw {
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			dropped++
			continue
		}
		sample = append(sample, f)
	}
	return sample, dropped
}

// Compute filters raw and returns its statistics. An empty sample yields
// models.EmptyReport. Compute never fails.
func Compute(raw []any, opts Options) models.StatisticsReport {
	sample, _ := Filter(raw)
	return Describe(sample, opts)
}

// largeMagnitude is the point above which squaring a value risks overflow
const largeMagnitude = 1e150

// Describe computes statistics over an already filtered sample.
func Describe(sample []float64, opts Options) models.StatisticsReport {
	n := len(sample)
	if n == 0 {
		return models.EmptyReport()
	}

	sorted := make([]float64, n)
	copy(sorted, sample)
	sort.Float64s(sorted)

	// large magnitudes are scaled down so the sum and squares stay finite
	scale := 1.0
	if m := math.Max(math.Abs(sorted[0]), math.Abs(sorted[n-1])); m > largeMagnitude {
		scale = m
	}

	var sum float64
	for _, v := range sorted {
		sum += v / scale
	}
	mean := sum / float64(n)

	// population variance: divide by n
	var sq float64
	for _, v := range sorted {
		d := v/scale - mean
		sq += d * d
	}

	report := models.StatisticsReport{
		Mean:   mean * scale,
		Median: median(sorted),
		StdDev: math.Sqrt(sq/float64(n)) * scale,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Count:  n,
	}
	if opts.IncludeMode {
		if m, ok := Mode(sorted); ok {
			report.Mode = &m
		}
	}
	return report
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1]/2 + sorted[n/2]/2
}

// Mode floors every value to an integer bin and returns the most frequent
// bin. Ties go to the smallest bin. Values whose bin falls outside the int64
// range are skipped; ok is false when no value could be binned.
func Mode(sample []float64) (mode int64, ok bool) {
	counts := make(map[int64]int, len(sample))
	for _, v := range sample {
		f := math.Floor(v)
		if f < math.MinInt64 || f >= math.MaxInt64 {
			continue
		}
		counts[int64(f)]++
	}
	if len(counts) == 0 {
		return 0, false
	}

	bins := make([]int64, 0, len(counts))
	for b := range counts {
		bins = append(bins, b)
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i] < bins[j] })

	best, bestCount := bins[0], counts[bins[0]]
	for _, b := range bins[1:] {
		if counts[b] > bestCount {
			best, bestCount = b, counts[b]
		}
	}
	return best, true
}
