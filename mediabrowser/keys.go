package mediabrowser

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// shiftTracker follows the shift key while the browser is mounted.
// acquire chains onto the canvas key handlers, release restores them.
type shiftTracker struct {
	pressed  bool
	onChange func(pressed bool)

	canvas       desktop.Canvas
	originalDown func(*fyne.KeyEvent)
	originalUp   func(*fyne.KeyEvent)
}

func newShiftTracker(onChange func(bool)) *shiftTracker {
	return &shiftTracker{onChange: onChange}
}

func isShiftKey(name fyne.KeyName) bool {
	return name == desktop.KeyShiftLeft || name == desktop.KeyShiftRight
}

// acquire hooks into c. Canvases without key up/down events (mobile)
// leave the tracker permanently released.
func (t *shiftTracker) acquire(c fyne.Canvas) {
	t.release()

	dc, ok := c.(desktop.Canvas)
	if !ok {
		return
	}

	t.canvas = dc
	t.originalDown = dc.OnKeyDown()
	t.originalUp = dc.OnKeyUp()
	dc.SetOnKeyDown(t.keyDown)
	dc.SetOnKeyUp(t.keyUp)
}

// release detaches from the canvas and always leaves shift released.
func (t *shiftTracker) release() {
	if t.canvas != nil {
		t.canvas.SetOnKeyDown(t.originalDown)
		t.canvas.SetOnKeyUp(t.originalUp)
		t.canvas = nil
		t.originalDown = nil
		t.originalUp = nil
	}
	t.set(false)
}

func (t *shiftTracker) keyDown(ev *fyne.KeyEvent) {
	if t.originalDown != nil {
		t.originalDown(ev)
	}
	if ev != nil && isShiftKey(ev.Name) {
		t.set(true)
	}
}

func (t *shiftTracker) keyUp(ev *fyne.KeyEvent) {
	if t.originalUp != nil {
		t.originalUp(ev)
	}
	if ev != nil && isShiftKey(ev.Name) {
		t.set(false)
	}
}

// sync corrects the state from the modifiers carried by a pointer event,
// catching key ups that happened while another window had focus.
func (t *shiftTracker) sync(mods fyne.KeyModifier) {
	t.set(mods&fyne.KeyModifierShift != 0)
}

func (t *shiftTracker) set(pressed bool) {
	if t.pressed == pressed {
		return
	}
	t.pressed = pressed
	if t.onChange != nil {
		t.onChange(pressed)
	}
}

func (t *shiftTracker) isPressed() bool {
	return t.pressed
}
