package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/username/fundfolio/backend/src/models"
)

func flowDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIRRSolverOneYearReturn(t *testing.T) {
	solver := NewIRRSolver()
	rate := solver.Solve([]models.CashFlow{
		{Date: flowDay(2021, time.January, 1), Amount: -1000},
		{Date: flowDay(2022, time.January, 1), Amount: 1100},
	})
	assert.InDelta(t, 0.10, rate, 1e-3)
}

func TestIRRSolverMultipleFlows(t *testing.T) {
	solver := NewIRRSolver()
	rate := solver.Solve([]models.CashFlow{
		{Date: flowDay(2021, time.January, 1), Amount: -1000},
		{Date: flowDay(2021, time.July, 1), Amount: -1000},
		{Date: flowDay(2022, time.July, 1), Amount: 2300},
	})
	assert.Greater(t, rate, 0.0)
	assert.Less(t, rate, 0.25)
}

func TestIRRSolverNegativeReturn(t *testing.T) {
	solver := NewIRRSolver()
	rate := solver.Solve([]models.CashFlow{
		{Date: flowDay(2021, time.January, 1), Amount: -1000},
		{Date: flowDay(2022, time.January, 1), Amount: 800},
	})
	assert.InDelta(t, -0.20, rate, 1e-3)
}

func TestIRRSolverUnsortedInput(t *testing.T) {
	solver := NewIRRSolver()
	rate := solver.Solve([]models.CashFlow{
		{Date: flowDay(2022, time.January, 1), Amount: 1100},
		{Date: flowDay(2021, time.January, 1), Amount: -1000},
	})
	assert.InDelta(t, 0.10, rate, 1e-3)
}

func TestIRRSolverDegenerateSeries(t *testing.T) {
	solver := NewIRRSolver()

	assert.Zero(t, solver.Solve(nil))
	assert.Zero(t, solver.Solve([]models.CashFlow{{Date: flowDay(2021, time.January, 1), Amount: -1000}}))

	// All flows in one direction have no rate of return.
	assert.Zero(t, solver.Solve([]models.CashFlow{
		{Date: flowDay(2021, time.January, 1), Amount: -1000},
		{Date: flowDay(2022, time.January, 1), Amount: -500},
	}))
}
