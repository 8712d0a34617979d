package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/romsync/romsync/pkg/plan"
)

// Failure records one isolated per-item failure within a pass.
type Failure struct {
	ExternalID string
	Op         plan.OpKind
	Reason     string
}

// Result is the summary of one reconciliation pass returned to the
// orchestrator. The external-id lists are sorted for determinism.
type Result struct {
	PassID   string
	DryRun   bool
	Canceled bool

	Created []string
	Updated []string
	Deleted []string
	Skipped int
	Failed  []Failure

	// Pruned lists the external ids whose stale mappings were removed
	// before planning — or, in a dry run, would have been.
	Pruned []string

	Duration time.Duration
}

// HasChanges reports whether the pass applied (or, in a dry run, planned)
// any mutations.
func (r *Result) HasChanges() bool {
	return len(r.Created)+len(r.Updated)+len(r.Deleted) > 0
}

// Summary returns a human-readable summary of the pass.
func (r *Result) Summary() string {
	s := fmt.Sprintf("%d created, %d updated, %d deleted, %d unchanged, %d failed",
		len(r.Created), len(r.Updated), len(r.Deleted), r.Skipped, len(r.Failed))

	var notes []string
	if r.DryRun {
		notes = append(notes, "dry run")
	}
	if r.Canceled {
		notes = append(notes, "canceled")
	}
	if len(notes) > 0 {
		s += " (" + strings.Join(notes, ", ") + ")"
	}
	return s
}

// recorder accumulates per-item outcomes from concurrent workers.
type recorder struct {
	mu     sync.Mutex
	result *Result
}

func newRecorder(passID string, dryRun bool) *recorder {
	return &recorder{result: &Result{PassID: passID, DryRun: dryRun}}
}

func (rec *recorder) applied(op plan.Operation) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	switch op.Kind {
	case plan.OpCreate:
		rec.result.Created = append(rec.result.Created, op.ExternalID)
	case plan.OpUpdate:
		rec.result.Updated = append(rec.result.Updated, op.ExternalID)
	case plan.OpDelete:
		rec.result.Deleted = append(rec.result.Deleted, op.ExternalID)
	}
}

func (rec *recorder) failed(op plan.Operation, err error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.result.Failed = append(rec.result.Failed, Failure{
		ExternalID: op.ExternalID,
		Op:         op.Kind,
		Reason:     err.Error(),
	})
}

// finish sorts the outcome lists and stamps the duration.
func (rec *recorder) finish(start time.Time, skipped int, canceled bool) *Result {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	r := rec.result
	r.Skipped = skipped
	r.Canceled = canceled
	r.Duration = time.Since(start)
	sort.Strings(r.Created)
	sort.Strings(r.Updated)
	sort.Strings(r.Deleted)
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].ExternalID < r.Failed[j].ExternalID })
	return r
}
