package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *recorder) Render(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recorder) indexes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.frames))
	for i, f := range r.frames {
		out[i] = f.Index
	}
	return out
}

func steps(messages ...string) []catalog.Step {
	out := make([]catalog.Step, len(messages))
	for i, m := range messages {
		out[i] = catalog.Step{
			Tree:    &catalog.TreeNode{Keys: []catalog.Key{{ID: "B001"}}},
			Message: m,
		}
	}
	return out
}

func newSession(t *testing.T) (*Session, *recorder, *ManualScheduler, *int) {
	t.Helper()
	rec := &recorder{}
	sched := &ManualScheduler{}
	stops := 0
	s := New(rec, Options{Scheduler: sched, OnStop: func() { stops++ }})
	return s, rec, sched, &stops
}

func TestStart_EmptyIsNoop(t *testing.T) {
	s, rec, _, _ := newSession(t)
	s.Start(nil, "", false)
	s.Start([]catalog.Step{}, "B001", true)

	require.Equal(t, Idle, s.State())
	require.Equal(t, -1, s.Cursor())
	require.Empty(t, rec.indexes())

	s.Next()
	s.Prev()
	s.Play()
	require.Equal(t, Idle, s.State())
}

func TestStart_EmptyKeepsPreviousTrace(t *testing.T) {
	s, _, _, _ := newSession(t)
	s.Start(steps("a", "b"), "", true)
	s.Start(nil, "", false)
	require.Equal(t, 1, s.Cursor())
	require.Equal(t, 2, s.Len())
}

func TestNext_StopsAtLastStep(t *testing.T) {
	s, rec, _, _ := newSession(t)
	s.Start(steps("0", "1", "2", "3", "4"), "", false)
	require.Equal(t, Ready, s.State())

	for i := 0; i < 4; i++ {
		s.Next()
	}
	require.Equal(t, 4, s.Cursor())

	s.Next()
	require.Equal(t, 4, s.Cursor())
	require.Equal(t, []int{0, 1, 2, 3, 4}, rec.indexes())
}

func TestPrev_ClampsAtZero(t *testing.T) {
	s, rec, _, _ := newSession(t)
	s.Start(steps("0", "1"), "", true)
	s.Prev()
	s.Prev()
	s.Prev()
	require.Equal(t, 0, s.Cursor())
	require.Equal(t, []int{1, 0}, rec.indexes())
}

func TestPlay_SingleStepThenStop(t *testing.T) {
	s, _, sched, stops := newSession(t)
	s.Start(steps("only"), "", false)
	s.Play()
	s.Stop()

	require.Equal(t, 0, s.Cursor())
	require.False(t, s.Playing())
	require.Zero(t, sched.Pending())
	require.Equal(t, 1, *stops)
}

func TestPlay_AdvancesWithDelays(t *testing.T) {
	s, rec, sched, stops := newSession(t)
	s.Start(steps("visit", "Gộp hai node", "visit", "done"), "", false)

	s.Play()
	require.Equal(t, Playing, s.State())
	require.Equal(t, 1, s.Cursor())
	require.Equal(t, 1, sched.Pending())

	require.True(t, sched.Fire())
	require.Equal(t, 2, s.Cursor())

	require.True(t, sched.Fire())
	require.Equal(t, 3, s.Cursor())
	require.Equal(t, Ready, s.State())
	require.Zero(t, sched.Pending())
	require.False(t, sched.Fire())

	require.Equal(t, []time.Duration{ExtendedDelay, BaseDelay}, sched.Delays())
	require.Equal(t, []int{0, 1, 2, 3}, rec.indexes())
	require.Equal(t, 1, *stops)
}

func TestPlay_FromLastStepReplays(t *testing.T) {
	s, rec, sched, _ := newSession(t)
	s.Start(steps("a", "b", "c"), "", true)

	s.Play()
	require.Equal(t, 0, s.Cursor())
	require.True(t, s.Playing())
	require.Equal(t, []int{2, 0}, rec.indexes())
	require.Equal(t, 1, sched.Pending())
}

func TestPlay_TogglesOff(t *testing.T) {
	s, _, sched, stops := newSession(t)
	s.Start(steps("a", "b", "c"), "", false)
	s.Play()
	s.Play()

	require.False(t, s.Playing())
	require.Equal(t, 1, s.Cursor())
	require.Zero(t, sched.Pending())
	require.Equal(t, 1, *stops)
}

func TestStaleCallbackIsIgnored(t *testing.T) {
	t.Run("after stop", func(t *testing.T) {
		s, rec, sched, _ := newSession(t)
		s.Start(steps("a", "b", "c"), "", false)
		s.Play()
		s.Stop()

		require.True(t, sched.FireStale())
		require.Equal(t, 1, s.Cursor())
		require.Equal(t, []int{0, 1}, rec.indexes())
	})

	t.Run("after restart", func(t *testing.T) {
		s, rec, sched, _ := newSession(t)
		s.Start(steps("a", "b", "c"), "", false)
		s.Play()
		s.Start(steps("x", "y", "z"), "", false)

		require.True(t, sched.FireStale())
		require.Equal(t, 0, s.Cursor())
		require.Equal(t, []int{0, 1, 0}, rec.indexes())
	})

	t.Run("after stop and replay", func(t *testing.T) {
		s, _, sched, _ := newSession(t)
		s.Start(steps("a", "b", "c", "d", "e"), "", false)
		s.Play()
		s.Stop()
		s.Play()
		require.Equal(t, 2, s.Cursor())

		require.True(t, sched.FireStale())
		require.Equal(t, 2, s.Cursor())
		require.True(t, sched.Fire())
		require.Equal(t, 3, s.Cursor())
	})
}

func TestPrev_DoesNotAffectPlaying(t *testing.T) {
	s, _, _, _ := newSession(t)
	s.Start(steps("a", "b", "c", "d"), "", false)
	s.Play()
	s.Prev()
	require.True(t, s.Playing())
	require.Equal(t, 0, s.Cursor())
}

func TestFrame_Contents(t *testing.T) {
	s, rec, _, _ := newSession(t)
	s.Start(steps("a", "Tìm thấy B001"), "B001", false)
	s.Next()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	last := rec.frames[len(rec.frames)-1]
	require.Equal(t, 1, last.Index)
	require.Equal(t, 2, last.Total)
	require.Equal(t, 100.0, last.Progress)
	require.Equal(t, ExtendedDelay, last.Delay)
	require.NotNil(t, last.Scene.Focus)
}

func TestSequence(t *testing.T) {
	trace := steps("Chèn B001", "Tách node", "Range B001")
	trace[2].Events = []string{"overflow"}

	frames := Sequence(trace, "", Options{})
	require.Len(t, frames, 3)
	require.Equal(t, BaseDelay, frames[0].Delay)
	require.Equal(t, ExtendedDelay, frames[1].Delay)
	require.Equal(t, ExtendedDelay, frames[2].Delay)
	require.InDelta(t, 100.0/3, frames[0].Progress, 1e-9)

	for i, f := range frames {
		require.Equal(t, Options{}.DelayFor(trace[i]), f.Delay)
	}
	require.Empty(t, Sequence(nil, "", Options{}))
}

func TestFrameAt_MatchesSequence(t *testing.T) {
	trace := steps("Chèn B001", "Tách node", "Tìm thấy B001")
	frames := Sequence(trace, "B001", Options{})
	for i := range trace {
		require.Equal(t, frames[i], FrameAt(trace, i, "B001", Options{}))
	}
}

func TestRealScheduler(t *testing.T) {
	done := make(chan struct{})
	rec := &recorder{}
	s := New(rec, Options{
		BaseDelay:     time.Millisecond,
		ExtendedDelay: time.Millisecond,
		OnStop:        func() { close(done) },
	})
	s.Start(steps("a", "b", "c", "d"), "", false)
	s.Play()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("autoplay did not finish")
	}
	require.Equal(t, 3, s.Cursor())
	require.Equal(t, []int{0, 1, 2, 3}, rec.indexes())
}
