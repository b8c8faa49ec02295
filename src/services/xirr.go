package services

import (
	"math"
	"sort"

	"github.com/username/fundfolio/backend/src/models"
)

const (
	xirrLowerBound = -0.9999
	xirrUpperBound = 10.0
	xirrIterations = 100
	xirrTolerance  = 1e-7
)

type bisectionIRRSolver struct{}

// NewIRRSolver returns a solver that bisects the net present value function
// over annualized rates in (-99.99%, 1000%).
func NewIRRSolver() IRRSolver {
	return &bisectionIRRSolver{}
}

func (s *bisectionIRRSolver) Solve(flows []models.CashFlow) float64 {
	if len(flows) < 2 {
		return 0
	}

	sorted := make([]models.CashFlow, len(flows))
	copy(sorted, flows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	hasOutflow, hasInflow := false, false
	for _, f := range sorted {
		if f.Amount < 0 {
			hasOutflow = true
		}
		if f.Amount > 0 {
			hasInflow = true
		}
	}
	if !hasOutflow || !hasInflow {
		return 0
	}

	lo, hi := xirrLowerBound, xirrUpperBound
	npvLo := netPresentValue(sorted, lo)
	npvHi := netPresentValue(sorted, hi)
	if npvLo*npvHi > 0 {
		return 0
	}

	for i := 0; i < xirrIterations; i++ {
		mid := (lo + hi) / 2
		npvMid := netPresentValue(sorted, mid)
		if math.Abs(npvMid) < xirrTolerance {
			return mid
		}
		if npvLo*npvMid < 0 {
			hi = mid
		} else {
			lo = mid
			npvLo = npvMid
		}
	}
	return (lo + hi) / 2
}

// netPresentValue discounts each flow by the years elapsed since the first
// flow at the given annualized rate.
func netPresentValue(sorted []models.CashFlow, rate float64) float64 {
	t0 := sorted[0].Date
	npv := 0.0
	for _, f := range sorted {
		years := f.Date.Sub(t0).Hours() / 24 / 365
		npv += f.Amount / math.Pow(1+rate, years)
	}
	return npv
}
