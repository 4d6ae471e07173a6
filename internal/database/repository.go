package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/polimap/vote-latent/internal/analysis"
	"github.com/polimap/vote-latent/internal/encoding"
	apperrors "github.com/polimap/vote-latent/internal/errors"
	"github.com/polimap/vote-latent/internal/resilience"
	"github.com/polimap/vote-latent/internal/types"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// UpsertBill inserts or updates a bill's status and detail fields.
func (r *Repository) UpsertBill(info types.BillInfo) error {
	stmt, err := r.db.GetPreparedStatement("upsert_bill")
	if err != nil {
		return err
	}

	err = resilience.Retry(context.Background(), func() error {
		_, execErr := stmt.Exec(info.ID, info.Passed, info.DeliberationCompleted, info.Title, info.Description, time.Now())
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to upsert bill %d: %w", info.ID, err)
	}

	return nil
}

// InsertVote appends one member's vote on a bill. Arrival order is
// preserved; the matrix builder applies last-write-wins on duplicates.
func (r *Repository) InsertVote(billID int, ms types.MemberScore) error {
	stmt, err := r.db.GetPreparedStatement("insert_vote")
	if err != nil {
		return err
	}

	err = resilience.Retry(context.Background(), func() error {
		_, execErr := stmt.Exec(billID, ms.MemberID, ms.MemberName, ms.Score, time.Now())
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert vote (bill %d, member %d): %w", billID, ms.MemberID, err)
	}

	return nil
}

// UpsertAssignment records a bill's cluster label within a clustering run.
func (r *Repository) UpsertAssignment(clusterID, billID, label int) error {
	stmt, err := r.db.GetPreparedStatement("upsert_assignment")
	if err != nil {
		return err
	}

	err = resilience.Retry(context.Background(), func() error {
		_, execErr := stmt.Exec(clusterID, billID, label)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to upsert assignment (cluster %d, bill %d): %w", clusterID, billID, err)
	}

	return nil
}

// LoadBillInfo loads all bills keyed by id.
func (r *Repository) LoadBillInfo() (map[int]types.BillInfo, error) {
	rows, err := r.db.Query(`
		SELECT id, passed, deliberation_completed, title, description
		FROM bills
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	bills := make(map[int]types.BillInfo)
	for rows.Next() {
		var info types.BillInfo
		if err := rows.Scan(&info.ID, &info.Passed, &info.DeliberationCompleted, &info.Title, &info.Description); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills[info.ID] = info
	}

	return bills, rows.Err()
}

// LoadLegislationScores loads every vote grouped per bill, preserving
// vote arrival order within each bill.
func (r *Repository) LoadLegislationScores() ([]types.LegislationScore, error) {
	rows, err := r.db.Query(`
		SELECT bill_id, member_id, member_name, score
		FROM vote_scores
		ORDER BY bill_id ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote scores: %w", err)
	}
	defer rows.Close()

	var scores []types.LegislationScore
	var current *types.LegislationScore

	for rows.Next() {
		var billID int
		var ms types.MemberScore
		if err := rows.Scan(&billID, &ms.MemberID, &ms.MemberName, &ms.Score); err != nil {
			return nil, fmt.Errorf("failed to scan vote score: %w", err)
		}

		if current == nil || current.BillID != billID {
			scores = append(scores, types.LegislationScore{BillID: billID})
			current = &scores[len(scores)-1]
		}
		current.MemberScores = append(current.MemberScores, ms)
	}

	return scores, rows.Err()
}

// LoadClusterAssignments returns the bill id to cluster label mapping
// for one clustering run.
func (r *Repository) LoadClusterAssignments(clusterID int) (map[int]int, error) {
	rows, err := r.db.Query(`
		SELECT bill_id, cluster_label
		FROM bill_cluster_assignments
		WHERE cluster_id = ?
	`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cluster assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[int]int)
	for rows.Next() {
		var billID, label int
		if err := rows.Scan(&billID, &label); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments[billID] = label
	}

	return assignments, rows.Err()
}

// SaveClusterResult persists one label's result, replacing any earlier
// run for the same cluster and label.
func (r *Repository) SaveClusterResult(clusterID, label, nComponents int, result *analysis.ClusterResult) error {
	payload, err := encoding.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cluster result: %w", err)
	}

	stored := NewStoredClusterResult(clusterID, label, nComponents, payload)

	stmt, err := r.db.GetPreparedStatement("upsert_result")
	if err != nil {
		return err
	}

	err = resilience.Retry(context.Background(), func() error {
		_, execErr := stmt.Exec(stored.ID, stored.ClusterID, stored.ClusterLabel, stored.NComponents, string(stored.Result), stored.CreatedAt)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to save cluster result (cluster %d, label %d): %w", clusterID, label, err)
	}

	return nil
}

// GetClusterResult loads one label's persisted result.
func (r *Repository) GetClusterResult(clusterID, label int) (*analysis.ClusterResult, error) {
	stmt, err := r.db.GetPreparedStatement("get_result")
	if err != nil {
		return nil, err
	}

	var payload string
	err = stmt.QueryRow(clusterID, label).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("no result for cluster %d label %d", clusterID, label))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster result: %w", err)
	}

	var result analysis.ClusterResult
	if err := encoding.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cluster result: %w", err)
	}

	return &result, nil
}

// GetClusterResults loads all labels' results for one clustering run,
// keyed by the decimal label, plus the run's component count.
func (r *Repository) GetClusterResults(clusterID int) (map[string]*analysis.ClusterResult, int, error) {
	stmt, err := r.db.GetPreparedStatement("get_results_by_cluster")
	if err != nil {
		return nil, 0, err
	}

	rows, err := stmt.Query(clusterID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query cluster results: %w", err)
	}
	defer rows.Close()

	results := make(map[string]*analysis.ClusterResult)
	nComponents := 0

	for rows.Next() {
		var label, n int
		var payload string
		if err := rows.Scan(&label, &n, &payload); err != nil {
			return nil, 0, fmt.Errorf("failed to scan cluster result: %w", err)
		}

		var result analysis.ClusterResult
		if err := encoding.Unmarshal([]byte(payload), &result); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal cluster result for label %d: %w", label, err)
		}

		results[fmt.Sprintf("%d", label)] = &result
		nComponents = n
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(results) == 0 {
		return nil, 0, apperrors.NewNotFoundError(
			fmt.Sprintf("no results for cluster %d", clusterID))
	}

	return results, nComponents, nil
}
