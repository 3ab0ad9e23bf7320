package app

import (
	"sync"
	"time"

	"github.com/dkeye/Lobby/internal/core"
)

// SpeakingTracker infers a debounced speaking indicator from audio frame
// arrival cadence. The first frame of a burst reports a start; a gap longer
// than the window fires onStop exactly once. No audio content is inspected.
type SpeakingTracker struct {
	mu     sync.Mutex
	window time.Duration
	timers map[core.ConnID]*speakingTimer
	onStop func(core.ConnID)
}

// speakingTimer carries the authoritative deadline alongside the timer:
// an expiry callback that lost the race with a Reset sees a deadline still
// in the future and must not stop the burst.
type speakingTimer struct {
	timer    *time.Timer
	deadline time.Time
}

func NewSpeakingTracker(window time.Duration, onStop func(core.ConnID)) *SpeakingTracker {
	return &SpeakingTracker{
		window: window,
		timers: make(map[core.ConnID]*speakingTimer),
		onStop: onStop,
	}
}

// OnFrame records frame arrival for cid and reports whether this frame
// starts a new speaking burst. Subsequent frames inside the window only
// push the stop deadline out.
func (t *SpeakingTracker) OnFrame(cid core.ConnID) (started bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.timers[cid]; ok {
		st.deadline = time.Now().Add(t.window)
		st.timer.Reset(t.window)
		return false
	}
	st := &speakingTimer{deadline: time.Now().Add(t.window)}
	st.timer = time.AfterFunc(t.window, func() { t.fire(cid) })
	t.timers[cid] = st
	return true
}

// Cancel stops a pending timer without firing onStop. Must be called on the
// connection's destruction path so the callback never mutates torn-down
// state.
func (t *SpeakingTracker) Cancel(cid core.ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.timers[cid]; ok {
		st.timer.Stop()
		delete(t.timers, cid)
	}
}

func (t *SpeakingTracker) fire(cid core.ConnID) {
	t.mu.Lock()
	st, ok := t.timers[cid]
	if !ok {
		// canceled between the timer firing and us taking the lock
		t.mu.Unlock()
		return
	}
	if remain := time.Until(st.deadline); remain > 0 {
		// a frame pushed the deadline out after this expiry was queued;
		// the burst is still alive
		st.timer.Reset(remain)
		t.mu.Unlock()
		return
	}
	delete(t.timers, cid)
	t.mu.Unlock()
	if t.onStop != nil {
		t.onStop(cid)
	}
}
