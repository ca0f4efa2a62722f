// Package playback walks an ordered list of snapshots, rendering one at a
// time either on demand or on a timer.
//
// A Session has three states. Idle until the first non-empty Start, Ready
// while a step is shown and no timer is armed, Playing while autoplay is
// advancing. At most one advance is ever pending; every Start and Stop bumps
// an epoch so a callback that fires after it was superseded does nothing.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/matsen/btreeplay/internal/highlight"
	"github.com/matsen/btreeplay/internal/scene"
)

const (
	BaseDelay     = 1200 * time.Millisecond
	ExtendedDelay = 2500 * time.Millisecond
)

// State of a Session.
type State int

const (
	Idle State = iota
	Ready
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Frame is what a Renderer receives for one step.
type Frame struct {
	Index    int         `json:"index"`
	Total    int         `json:"total"`
	Progress float64     `json:"progress"` // percent of the trace shown, 0-100
	Message  string      `json:"message"`
	Scene    scene.Scene `json:"scene"`

	// Delay is how long autoplay lingers on this frame.
	Delay time.Duration `json:"-"`
}

// Renderer receives frames. It is called with the session locked and must
// not call back into the Session.
type Renderer interface {
	Render(Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Frame)

func (f RendererFunc) Render(fr Frame) { f(fr) }

// Options configures a Session. Zero fields take defaults.
type Options struct {
	Scene         scene.Options
	BaseDelay     time.Duration
	ExtendedDelay time.Duration
	Scheduler     Scheduler
	Logger        *slog.Logger

	// OnStop runs, outside the session lock, whenever autoplay stops.
	OnStop func()
}

func (o Options) withDefaults() Options {
	if o.Scene == (scene.Options{}) {
		o.Scene = scene.DefaultOptions()
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = BaseDelay
	}
	if o.ExtendedDelay <= 0 {
		o.ExtendedDelay = ExtendedDelay
	}
	if o.Scheduler == nil {
		o.Scheduler = RealScheduler{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// DelayFor returns how long autoplay stays on step: longer for steps that
// reshape the tree or conclude a search.
func (o Options) DelayFor(step catalog.Step) time.Duration {
	o = o.withDefaults()
	if highlight.TagsFor(step).Structural() {
		return o.ExtendedDelay
	}
	return o.BaseDelay
}

// Session owns one trace being played back. The zero value is not usable;
// create one with New.
type Session struct {
	opts     Options
	renderer Renderer

	mu      sync.Mutex
	steps   []catalog.Step
	target  string
	cursor  int
	loaded  bool
	playing bool
	epoch   uint64
	timer   Timer
}

// New returns an Idle session that hands frames to r.
func New(r Renderer, opts Options) *Session {
	return &Session{opts: opts.withDefaults(), renderer: r}
}

// Start replaces the current trace and shows its first step, or its last
// when startAtEnd is set. An empty trace leaves the session untouched.
func (s *Session) Start(steps []catalog.Step, target string, startAtEnd bool) {
	if len(steps) == 0 {
		s.opts.Logger.Debug("playback start ignored, no steps")
		return
	}

	s.mu.Lock()
	stopped := s.stopLocked()
	s.steps = append([]catalog.Step(nil), steps...)
	s.target = target
	s.loaded = true
	s.cursor = 0
	if startAtEnd {
		s.cursor = len(s.steps) - 1
	}
	s.opts.Logger.Debug("playback started", "steps", len(s.steps), "target", target, "cursor", s.cursor)
	s.renderLocked()
	s.mu.Unlock()

	s.notifyStop(stopped)
}

// Next shows the following step. At the last step it behaves like Stop.
func (s *Session) Next() {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return
	}
	stopped := false
	if s.cursor < len(s.steps)-1 {
		s.cursor++
		s.renderLocked()
	} else {
		stopped = s.stopLocked()
	}
	s.mu.Unlock()

	s.notifyStop(stopped)
}

// Prev shows the preceding step, if any. Autoplay is not affected.
func (s *Session) Prev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded || s.cursor <= 0 {
		return
	}
	s.cursor--
	s.renderLocked()
}

// Play toggles autoplay. Starting from the last step replays from the first.
// The first advance happens immediately.
func (s *Session) Play() {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return
	}
	if s.playing {
		stopped := s.stopLocked()
		s.mu.Unlock()
		s.notifyStop(stopped)
		return
	}

	s.playing = true
	if s.cursor >= len(s.steps)-1 {
		s.cursor = -1
	}
	s.opts.Logger.Debug("playback playing", "cursor", s.cursor, "epoch", s.epoch)
	stopped := s.advanceLocked(s.epoch)
	s.mu.Unlock()

	s.notifyStop(stopped)
}

// Stop cancels autoplay. It is safe to call at any time.
func (s *Session) Stop() {
	s.mu.Lock()
	stopped := s.stopLocked()
	s.mu.Unlock()

	s.notifyStop(stopped)
}

// Cursor returns the index of the step on display, or -1 when Idle.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return -1
	}
	return s.cursor
}

// Playing reports whether autoplay is active.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !s.loaded:
		return Idle
	case s.playing:
		return Playing
	default:
		return Ready
	}
}

// Len returns the number of steps in the current trace.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// advanceLocked is one iteration of the autoplay loop. The frame is handed to
// the renderer before the next timer is armed.
func (s *Session) advanceLocked(epoch uint64) (stopped bool) {
	if epoch != s.epoch || !s.playing {
		return false
	}
	if s.cursor >= len(s.steps)-1 {
		return s.stopLocked()
	}

	s.cursor++
	s.renderLocked()
	if s.cursor >= len(s.steps)-1 {
		return s.stopLocked()
	}

	delay := s.opts.DelayFor(s.steps[s.cursor])
	s.timer = s.opts.Scheduler.AfterFunc(delay, func() { s.fire(epoch) })
	return false
}

func (s *Session) fire(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		s.opts.Logger.Debug("playback stale advance dropped", "epoch", epoch)
		return
	}
	s.timer = nil
	stopped := s.advanceLocked(epoch)
	s.mu.Unlock()

	s.notifyStop(stopped)
}

// stopLocked cancels any pending advance and reports whether autoplay was
// running.
func (s *Session) stopLocked() bool {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.epoch++
	was := s.playing
	s.playing = false
	return was
}

func (s *Session) notifyStop(stopped bool) {
	if stopped && s.opts.OnStop != nil {
		s.opts.OnStop()
	}
}

func (s *Session) renderLocked() {
	if s.cursor < 0 || s.cursor >= len(s.steps) {
		return
	}
	if s.renderer == nil {
		return
	}
	s.renderer.Render(frameFor(s.steps, s.cursor, s.target, s.opts))
}

func frameFor(steps []catalog.Step, i int, target string, opts Options) Frame {
	step := steps[i]
	return Frame{
		Index:    i,
		Total:    len(steps),
		Progress: float64(i+1) / float64(len(steps)) * 100,
		Message:  step.Message,
		Scene:    scene.Render(step, target, opts.Scene),
		Delay:    opts.DelayFor(step),
	}
}

// FrameAt returns the frame for steps[i] alone, laying out and classifying
// only that step. It panics if i is out of range.
func FrameAt(steps []catalog.Step, i int, target string, opts Options) Frame {
	return frameFor(steps, i, target, opts.withDefaults())
}

// Sequence returns every frame of steps in playback order, with the delays
// autoplay would use, without arming any timer.
func Sequence(steps []catalog.Step, target string, opts Options) []Frame {
	opts = opts.withDefaults()
	frames := make([]Frame, len(steps))
	for i := range steps {
		frames[i] = frameFor(steps, i, target, opts)
	}
	return frames
}
