package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
)

// scriptedAdvancer returns the scripted states in order, then repeats the
// last one.
type scriptedAdvancer struct {
	mu     sync.Mutex
	states []constants.JobState
	errs   []error
	calls  int
}

func (a *scriptedAdvancer) Advance(_ context.Context, _ uuid.UUID) (constants.JobState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.calls
	a.calls++
	if i < len(a.errs) && a.errs[i] != nil {
		return "", a.errs[i]
	}
	if i >= len(a.states) {
		i = len(a.states) - 1
	}
	return a.states[i], nil
}

func (a *scriptedAdvancer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func TestQueueDrivesJobToTerminal(t *testing.T) {
	adv := &scriptedAdvancer{states: []constants.JobState{
		constants.StateExtracted,
		constants.StateSucceeded,
	}}

	done := make(chan constants.JobState, 1)
	q := NewAdvanceQueue(adv, nil,
		WithWorkers(1),
		WithRetryBackoff(time.Millisecond),
		WithTerminalHook(func(_ context.Context, _ uuid.UUID, state constants.JobState) {
			done <- state
		}),
	)
	defer q.Shutdown(context.Background())

	if err := q.Enqueue(context.Background(), Job{JobID: uuid.New(), SubmittedAt: time.Now()}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case state := <-done:
		if state != constants.StateSucceeded {
			t.Errorf("terminal state = %s", state)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job never reached terminal state")
	}
	if adv.callCount() != 2 {
		t.Errorf("advance calls = %d, want 2", adv.callCount())
	}
}

func TestQueueRetriesAfterAdvanceError(t *testing.T) {
	adv := &scriptedAdvancer{
		errs:   []error{errors.New("transient db outage")},
		states: []constants.JobState{constants.StateFailed},
	}

	done := make(chan constants.JobState, 1)
	q := NewAdvanceQueue(adv, nil,
		WithWorkers(1),
		WithRetryBackoff(time.Millisecond),
		WithTerminalHook(func(_ context.Context, _ uuid.UUID, state constants.JobState) {
			done <- state
		}),
	)
	defer q.Shutdown(context.Background())

	_ = q.Enqueue(context.Background(), Job{JobID: uuid.New()})

	select {
	case state := <-done:
		if state != constants.StateFailed {
			t.Errorf("terminal state = %s", state)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job never reached terminal state after transient error")
	}
}

func TestQueueShutdownDrains(t *testing.T) {
	adv := &scriptedAdvancer{states: []constants.JobState{constants.StateSucceeded}}

	var hooks sync.WaitGroup
	hooks.Add(3)
	q := NewAdvanceQueue(adv, nil,
		WithWorkers(2),
		WithRetryBackoff(time.Millisecond),
		WithTerminalHook(func(_ context.Context, _ uuid.UUID, _ constants.JobState) {
			hooks.Done()
		}),
	)

	for i := 0; i < 3; i++ {
		_ = q.Enqueue(context.Background(), Job{JobID: uuid.New()})
	}

	q.Shutdown(context.Background())
	hooks.Wait()

	// Post-shutdown enqueue is a logged no-op, never a panic.
	if err := q.Enqueue(context.Background(), Job{JobID: uuid.New()}); err != nil {
		t.Errorf("post-shutdown Enqueue: %v", err)
	}
}
