// Package report builds per-worker bonus and wage reports and exports them
// as XLSX workbooks or GeoJSON site maps.
package report

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fahmycader/metermate-backend/internal/config"
	"github.com/fahmycader/metermate-backend/internal/model"
	"github.com/fahmycader/metermate-backend/internal/rules"
	"github.com/fahmycader/metermate-backend/internal/store"
)

// WorkerReport is the computed bonus and wage summary for one worker.
type WorkerReport struct {
	UserID  string             `json:"user_id"`
	Name    string             `json:"name"`
	Jobs    int                `json:"jobs"`
	Summary rules.BonusSummary `json:"summary"`
	Wage    rules.WageResult   `json:"wage"`
}

// Generator computes worker reports from the store.
type Generator struct {
	store   store.Store
	wageCfg config.WageConfig
}

// NewGenerator creates a report generator.
func NewGenerator(st store.Store, wageCfg config.WageConfig) *Generator {
	return &Generator{store: st, wageCfg: wageCfg}
}

// BuildOne computes the report for a single worker.
func (g *Generator) BuildOne(ctx context.Context, workerID string) (*WorkerReport, error) {
	jobs, err := g.store.ListJobs(ctx, store.JobFilter{AssignedTo: workerID, Limit: 10000})
	if err != nil {
		return nil, eris.Wrapf(err, "report: list jobs for %s", workerID)
	}

	rep := &WorkerReport{UserID: workerID, Jobs: len(jobs)}

	if u, err := g.store.GetUser(ctx, workerID); err == nil {
		rep.Name = u.Name
	}

	data := make([]rules.JobData, 0, len(jobs))
	var completed int
	var distance float64
	for i := range jobs {
		data = append(data, jobs[i].Data())
		if jobs[i].Status == model.JobStatusCompleted {
			completed++
			distance += jobs[i].DistanceMiles
		}
	}

	rep.Summary = rules.Aggregate(data)
	rep.Wage = rules.ComputeWage(distance, completed, g.wageCfg.RatePerMile, g.wageCfg.AllowancePerJob)
	return rep, nil
}

// BuildAll computes reports for all workers concurrently. Per-job scores are
// independent, so workers can be processed in parallel without changing any
// result.
func (g *Generator) BuildAll(ctx context.Context, workerIDs []string) ([]WorkerReport, error) {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)

	var mu sync.Mutex
	reports := make([]WorkerReport, 0, len(workerIDs))

	for _, id := range workerIDs {
		eg.Go(func() error {
			rep, err := g.BuildOne(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			reports = append(reports, *rep)
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].UserID < reports[j].UserID })

	zap.L().Info("report: built worker reports", zap.Int("workers", len(reports)))
	return reports, nil
}
