package scheduler

import (
	"context"
)

// OverdueSweeper persists overdue payment status for unpaid invoices past due
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// OverdueSweepExecutor runs JobTypeOverdueInvoiceSweep jobs
type OverdueSweepExecutor struct {
	sweeper OverdueSweeper
}

// NewOverdueSweepExecutor creates an executor backed by the given sweeper
func NewOverdueSweepExecutor(sweeper OverdueSweeper) *OverdueSweepExecutor {
	return &OverdueSweepExecutor{sweeper: sweeper}
}

// Execute implements JobExecutor
func (e *OverdueSweepExecutor) Execute(ctx context.Context, _ *Job) (int, error) {
	return e.sweeper.SweepOverdue(ctx)
}
