// Package session holds the interactive mode state shared between the
// keyboard reader and the frame loop.
//
// The two sides share only a single last-key cell and four mode flags, each
// touched by one atomic operation at a time. The frame loop may therefore see
// a key or flag one frame late; that is accepted.
package session

import (
	"sync/atomic"
)

// Command is a single-character operator command.
type Command rune

// Commands understood by Dispatch.
const (
	Idle           Command = 0
	CaptureSample  Command = 's'
	Calibrate      Command = 'c'
	ToggleAxes     Command = 'p'
	ToggleObject   Command = 'o'
	ShowPersistent Command = 'd'
	ToggleFeatures Command = 'f'
	Snapshot       Command = 'w'
	Quit           Command = 'q'
)

func (c Command) String() string {
	switch c {
	case Idle:
		return "idle"
	case CaptureSample:
		return "capture-sample"
	case Calibrate:
		return "calibrate"
	case ToggleAxes:
		return "toggle-axes"
	case ToggleObject:
		return "toggle-object"
	case ShowPersistent:
		return "show-persistent"
	case ToggleFeatures:
		return "toggle-features"
	case Snapshot:
		return "snapshot"
	case Quit:
		return "quit"
	default:
		return "unknown(" + string(rune(c)) + ")"
	}
}

// Help is the one-line key summary printed at startup.
const Help = "s: capture sample, c: calibrate, p: toggle axes, o: toggle object, " +
	"d: persistent pyramid, f: toggle features, w: snapshot, q: quit"

// Handler performs the commands that need frame state.
type Handler interface {
	CaptureSample()
	Calibrate()
	Snapshot()
}

// Session is the shared mode state. The zero value has every flag off and
// no pending key.
type Session struct {
	key atomic.Int32

	showAxes       atomic.Bool
	showObject     atomic.Bool
	showPersistent atomic.Bool
	showFeatures   atomic.Bool
}

// New returns an idle session.
func New() *Session {
	return &Session{}
}

// Press records r as the most recent key, replacing any key not yet taken.
func (s *Session) Press(r rune) {
	s.key.Store(int32(r))
}

// Take returns the pending key and resets the cell to Idle in one step, so
// each key press is seen by exactly one Take.
func (s *Session) Take() Command {
	return Command(s.key.Swap(int32(Idle)))
}

func (s *Session) ShowAxes() bool       { return s.showAxes.Load() }
func (s *Session) ShowObject() bool     { return s.showObject.Load() }
func (s *Session) ShowPersistent() bool { return s.showPersistent.Load() }
func (s *Session) ShowFeatures() bool   { return s.showFeatures.Load() }

// toggle flips b. Load and Store are separate operations; only the frame
// loop writes the toggled flags so no update is lost.
func toggle(b *atomic.Bool) {
	b.Store(!b.Load())
}

// Dispatch applies cmd. Mode toggles are handled here, the rest go to h.
// It reports whether cmd asks to quit. Idle and unknown commands do nothing.
func (s *Session) Dispatch(cmd Command, h Handler) (quit bool) {
	switch cmd {
	case CaptureSample:
		h.CaptureSample()
	case Calibrate:
		h.Calibrate()
	case Snapshot:
		h.Snapshot()
	case ToggleAxes:
		toggle(&s.showAxes)
	case ToggleObject:
		toggle(&s.showObject)
	case ShowPersistent:
		s.showPersistent.Store(true)
	case ToggleFeatures:
		toggle(&s.showFeatures)
	case Quit:
		return true
	}
	return false
}
