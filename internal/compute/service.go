// Package compute runs the latent-vector pipeline for every cluster
// label of a clustering run, fanning labels out over a fixed-size
// worker pool.
package compute

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/polimap/vote-latent/internal/analysis"
	"github.com/polimap/vote-latent/internal/database"
	"github.com/polimap/vote-latent/internal/monitoring"
)

// DefaultWorkers is the worker-pool size for per-label fan-out.
const DefaultWorkers = 4

// RunResult is the top-level document for one clustering run, keyed by
// the decimal cluster label.
type RunResult struct {
	ClusterID   int                               `json:"clusterId"`
	NComponents int                               `json:"nComponents"`
	Clusters    map[string]*analysis.ClusterResult `json:"clusters"`
}

// Service loads inputs from the store, computes every label, and
// persists the results.
type Service struct {
	repo    *database.Repository
	opts    analysis.Options
	workers int
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
}

// NewService creates a compute service. workers <= 0 falls back to
// DefaultWorkers.
func NewService(repo *database.Repository, opts analysis.Options, workers int, metrics *monitoring.Metrics, logger *monitoring.Logger) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{
		repo:    repo,
		opts:    opts,
		workers: workers,
		metrics: metrics,
		logger:  logger,
	}
}

type labelJob struct {
	label   int
	billIDs []int
}

type labelOutcome struct {
	result *analysis.ClusterResult
	err    error
}

// Run computes latent vectors for every cluster label in the given
// clustering run and persists one result per label. Labels are
// processed concurrently, each on its own isolated inputs; the
// assembled document and persistence order are deterministic.
//
// A clustering run with no assignments yields an empty document, not
// an error.
func (s *Service) Run(ctx context.Context, clusterID, nComponents int) (*RunResult, error) {
	start := time.Now()

	scores, err := s.repo.LoadLegislationScores()
	if err != nil {
		return nil, err
	}
	billInfo, err := s.repo.LoadBillInfo()
	if err != nil {
		return nil, err
	}
	assignments, err := s.repo.LoadClusterAssignments(clusterID)
	if err != nil {
		return nil, err
	}

	opts := s.opts
	if nComponents > 0 {
		opts.NComponents = nComponents
	}

	labelBills := make(map[int][]int)
	for billID, label := range assignments {
		labelBills[label] = append(labelBills[label], billID)
	}

	labels := make([]int, 0, len(labelBills))
	for label := range labelBills {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	outcomes := make(map[int]labelOutcome, len(labels))
	var outcomesMu sync.Mutex

	jobs := make(chan labelJob)
	var wg sync.WaitGroup

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			calc := analysis.NewCalculator(opts)

			for job := range jobs {
				if ctx.Err() != nil {
					outcomesMu.Lock()
					outcomes[job.label] = labelOutcome{err: ctx.Err()}
					outcomesMu.Unlock()
					continue
				}

				labelStart := time.Now()
				result, err := calc.ComputeCluster(scores, job.billIDs, billInfo)

				outcomesMu.Lock()
				outcomes[job.label] = labelOutcome{result: result, err: err}
				outcomesMu.Unlock()

				if err == nil && s.logger != nil {
					s.logger.ComputeLogger(clusterID, job.label,
						result.MemberCount, result.BillCount, result.Dimensions,
						time.Since(labelStart))
				}
			}
		}()
	}

	for _, label := range labels {
		jobs <- labelJob{label: label, billIDs: labelBills[label]}
	}
	close(jobs)
	wg.Wait()

	// First failure in label order wins, so repeated runs report the
	// same error for the same inputs.
	for _, label := range labels {
		if out := outcomes[label]; out.err != nil {
			return nil, fmt.Errorf("cluster %d label %d: %w", clusterID, label, out.err)
		}
	}

	run := &RunResult{
		ClusterID:   clusterID,
		NComponents: opts.NComponents,
		Clusters:    make(map[string]*analysis.ClusterResult, len(labels)),
	}

	for _, label := range labels {
		result := outcomes[label].result
		if err := s.repo.SaveClusterResult(clusterID, label, opts.NComponents, result); err != nil {
			return nil, err
		}
		run.Clusters[fmt.Sprintf("%d", label)] = result
	}

	if s.metrics != nil {
		s.metrics.IncrementComputation()
		s.metrics.AddClustersProcessed(int64(len(labels)))
	}
	if s.logger != nil {
		s.logger.RunLogger(clusterID, len(labels), s.workers, time.Since(start))
	}

	return run, nil
}
