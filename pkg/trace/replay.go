package trace

import (
	"time"

	"github.com/relaykit/chainforge/pkg/event"
)

// Result rebuilds the terminal event.Result a run would have produced,
// from a recorded event slice, the same way engine.RunSync folds the live
// channel — so a trace file and a live run are interchangeable inputs to
// any reporting code.
func Result(events []event.Event) *event.Result {
	var finish event.Event
	for _, ev := range events {
		if ev.Kind == event.KindFinish {
			finish = ev
		}
	}
	return &event.Result{
		Verdict:         finish.Verdict,
		ContextSnapshot: finish.ContextSnapshot,
		KeyFindings:     finish.KeyFindings,
		TotalDuration:   time.Duration(finish.TotalDurationMs) * time.Millisecond,
		FirstError:      finish.FirstError,
		Intervention:    finish.InterventionTrigger,
		Events:          events,
	}
}

// Replay re-emits a recorded event slice on a channel, pacing sends by
// each event's recorded Timestamp delta scaled by speed (1.0 is
// real-time, 0 or negative means no delay). The channel is closed once
// every event has been sent.
func Replay(events []event.Event, speed float64) <-chan event.Event {
	ch := make(chan event.Event)
	go func() {
		defer close(ch)
		var prev time.Time
		for i, ev := range events {
			if i > 0 && speed > 0 && !prev.IsZero() {
				gap := ev.Timestamp.Sub(prev)
				if gap > 0 {
					time.Sleep(time.Duration(float64(gap) / speed))
				}
			}
			prev = ev.Timestamp
			ch <- ev
		}
	}()
	return ch
}
