package batch

import (
	"context"
	"sync"

	"github.com/adalundhe/glossforge/core/pipeline"
)

// JobState is the scheduler-owned lifecycle of a batch job. Only the
// scheduler mutates it.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobPaused    JobState = "paused"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Progress is an observable snapshot of a running batch.
type Progress struct {
	JobID     string   `json:"job_id"`
	State     JobState `json:"state"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Remaining int      `json:"remaining"`
	CostUSD   float64  `json:"cost_usd"`
}

// Job is the handle to an asynchronous batch run. Pause, Resume, and
// Cancel are cooperative: workers honor them between units, never
// mid-call, so a paid call in flight always completes.
type Job struct {
	id     string
	total  int
	ledger *CostLedger

	mu        sync.Mutex
	state     JobState
	succeeded int
	failed    int
	skipped   int
	unpause   chan struct{}
	failures  []*pipeline.Result

	// stop closes on Cancel. The feed loop and workers select on it
	// between units; it never touches a context an adapter call holds.
	stop chan struct{}

	done   chan struct{}
	events chan Progress
}

func newJob(id string, total int, ledger *CostLedger) *Job {
	return &Job{
		id:      id,
		total:   total,
		ledger:  ledger,
		state:   JobPending,
		unpause: nil,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		events:  make(chan Progress, 64),
	}
}

// ID returns the job identifier.
func (j *Job) ID() string {
	return j.id
}

// Progress returns a point-in-time snapshot.
func (j *Job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Job) snapshotLocked() Progress {
	return Progress{
		JobID:     j.id,
		State:     j.state,
		Succeeded: j.succeeded,
		Failed:    j.failed,
		Skipped:   j.skipped,
		Remaining: j.total - j.succeeded - j.failed - j.skipped,
		CostUSD:   j.ledger.Spent(),
	}
}

// Events streams progress snapshots; one is emitted after every finished
// unit and on every state change. The channel closes when the job ends.
// Slow consumers miss intermediate snapshots rather than stalling workers.
func (j *Job) Events() <-chan Progress {
	return j.events
}

// Wait blocks until the job reaches a terminal state.
func (j *Job) Wait() Progress {
	<-j.done
	return j.Progress()
}

// WaitContext is Wait with a caller-supplied deadline.
func (j *Job) WaitContext(ctx context.Context) (Progress, error) {
	select {
	case <-ctx.Done():
		return j.Progress(), ctx.Err()
	case <-j.done:
		return j.Progress(), nil
	}
}

// Pause stops admission of new units. In-flight units finish.
func (j *Job) Pause() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobRunning {
		return
	}
	j.state = JobPaused
	j.unpause = make(chan struct{})
	j.emitLocked()
}

// Resume lifts a pause.
func (j *Job) Resume() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobPaused {
		return
	}
	j.state = JobRunning
	close(j.unpause)
	j.unpause = nil
	j.emitLocked()
}

// Cancel stops the batch: no new units are admitted and in-flight units
// drain to completion, so a paid call already underway is never wasted.
// The final state is cancelled.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state == JobPaused && j.unpause != nil {
		close(j.unpause)
		j.unpause = nil
	}
	switch j.state {
	case JobCompleted, JobFailed, JobCancelled:
		return
	}
	j.state = JobCancelled
	close(j.stop)
	j.emitLocked()
}

// Failures returns the failed unit results collected so far.
func (j *Job) Failures() []*pipeline.Result {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]*pipeline.Result, len(j.failures))
	copy(out, j.failures)
	return out
}

// awaitResume blocks while the job is paused. Returns false when the run
// should stop instead of continuing.
func (j *Job) awaitResume(ctx context.Context) bool {
	j.mu.Lock()
	ch := j.unpause
	j.mu.Unlock()

	if ch != nil {
		select {
		case <-ctx.Done():
			return false
		case <-j.stop:
			return false
		case <-ch:
		}
	}

	select {
	case <-j.stop:
		return false
	default:
	}
	return ctx.Err() == nil
}

func (j *Job) start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == JobPending {
		j.state = JobRunning
		j.emitLocked()
	}
}

func (j *Job) record(result *pipeline.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch result.State {
	case pipeline.StateSkipped:
		j.skipped++
	case pipeline.StateFailed:
		j.failed++
		j.failures = append(j.failures, result)
	default:
		j.succeeded++
	}
	j.emitLocked()
}

func (j *Job) finish(runErr error) {
	j.mu.Lock()
	switch j.state {
	case JobCancelled:
		// Cancel already set the terminal state.
	default:
		if runErr != nil {
			j.state = JobFailed
		} else {
			j.state = JobCompleted
		}
	}
	j.emitLocked()
	j.mu.Unlock()

	close(j.events)
	close(j.done)
}

// emitLocked publishes a snapshot without blocking workers.
func (j *Job) emitLocked() {
	select {
	case j.events <- j.snapshotLocked():
	default:
	}
}

// cancelled reports whether Cancel was called.
func (j *Job) cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state == JobCancelled
}
