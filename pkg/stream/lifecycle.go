package stream

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/rhuss/vzero/pkg/debug"
)

// Phase is the lifecycle position of a run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStreaming Phase = "streaming"
	PhaseCompleted Phase = "completed"
	PhaseErrored   Phase = "errored"
)

const (
	eventStart    = "start"
	eventComplete = "complete"
	eventFail     = "fail"
)

// newLifecycle returns the state machine for one run. completed and errored
// are terminal: no event leaves them.
func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		string(PhaseIdle),
		fsm.Events{
			{Name: eventStart, Src: []string{string(PhaseIdle)}, Dst: string(PhaseStreaming)},
			{Name: eventComplete, Src: []string{string(PhaseStreaming)}, Dst: string(PhaseCompleted)},
			{Name: eventFail, Src: []string{string(PhaseIdle), string(PhaseStreaming)}, Dst: string(PhaseErrored)},
		},
		fsm.Callbacks{},
	)
}

// transition fires event and reports whether the run changed phase. A
// refused transition (for example failing after completion) is logged and
// otherwise ignored.
func transition(ctx context.Context, m *fsm.FSM, event string) bool {
	// The run context may already be cancelled when recording the failure
	// that the cancellation caused.
	err := m.Event(context.WithoutCancel(ctx), event)
	if err == nil {
		return true
	}
	var noTransition fsm.NoTransitionError
	if !errors.As(err, &noTransition) {
		debug.Log("stream", "lifecycle transition refused", "event", event, "phase", m.Current(), "error", err.Error())
	}
	return false
}
