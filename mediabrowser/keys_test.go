package mediabrowser

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
)

// keyCanvas adds desktop key up and down hooks to a test canvas.
type keyCanvas struct {
	fyne.Canvas
	down func(*fyne.KeyEvent)
	up   func(*fyne.KeyEvent)
}

var _ desktop.Canvas = (*keyCanvas)(nil)

func newKeyCanvas() *keyCanvas {
	return &keyCanvas{Canvas: test.NewCanvas()}
}

func (c *keyCanvas) OnKeyDown() func(*fyne.KeyEvent)      { return c.down }
func (c *keyCanvas) SetOnKeyDown(fn func(*fyne.KeyEvent)) { c.down = fn }
func (c *keyCanvas) OnKeyUp() func(*fyne.KeyEvent)        { return c.up }
func (c *keyCanvas) SetOnKeyUp(fn func(*fyne.KeyEvent))   { c.up = fn }
func (c *keyCanvas) press(name fyne.KeyName)              { c.down(&fyne.KeyEvent{Name: name}) }
func (c *keyCanvas) releaseKey(name fyne.KeyName)         { c.up(&fyne.KeyEvent{Name: name}) }

func TestShiftTracker_FollowsBothShiftKeys(t *testing.T) {
	test.NewApp()
	c := newKeyCanvas()

	var changes []bool
	tr := newShiftTracker(func(p bool) { changes = append(changes, p) })
	tr.acquire(c)

	if tr.isPressed() {
		t.Fatal("expected shift released by default")
	}

	c.press(desktop.KeyShiftLeft)
	if !tr.isPressed() {
		t.Fatal("expected left shift to count as pressed")
	}
	c.releaseKey(desktop.KeyShiftLeft)
	c.press(desktop.KeyShiftRight)
	if !tr.isPressed() {
		t.Fatal("expected right shift to count as pressed")
	}
	c.press(fyne.KeyA)
	c.releaseKey(fyne.KeyA)
	if !tr.isPressed() {
		t.Fatal("expected other keys to leave shift alone")
	}
	c.releaseKey(desktop.KeyShiftRight)
	if tr.isPressed() {
		t.Fatal("expected shift released on key up")
	}

	if len(changes) != 4 {
		t.Fatalf("expected 4 state changes, got %v", changes)
	}
}

func TestShiftTracker_ChainsAndRestoresHandlers(t *testing.T) {
	test.NewApp()
	c := newKeyCanvas()

	var hostDown, hostUp int
	c.SetOnKeyDown(func(*fyne.KeyEvent) { hostDown++ })
	c.SetOnKeyUp(func(*fyne.KeyEvent) { hostUp++ })

	tr := newShiftTracker(nil)
	tr.acquire(c)
	c.press(desktop.KeyShiftLeft)
	c.releaseKey(fyne.KeyB)
	if hostDown != 1 || hostUp != 1 {
		t.Fatalf("expected host handlers to keep firing, got %d/%d", hostDown, hostUp)
	}

	tr.release()
	if tr.isPressed() {
		t.Fatal("expected release to force shift up")
	}

	c.press(desktop.KeyShiftLeft)
	if tr.isPressed() {
		t.Fatal("expected no tracking after release")
	}
	if hostDown != 2 {
		t.Fatalf("expected the original handler restored, got %d calls", hostDown)
	}
}

func TestShiftTracker_NonDesktopCanvas(t *testing.T) {
	test.NewApp()
	tr := newShiftTracker(nil)
	tr.acquire(nil)
	tr.sync(fyne.KeyModifierShift)
	if !tr.isPressed() {
		t.Fatal("expected pointer modifiers to still drive the state")
	}
	tr.release()
	if tr.isPressed() {
		t.Fatal("expected release to clear the state")
	}
}

func TestShiftTracker_SyncFromPointer(t *testing.T) {
	test.NewApp()
	c := newKeyCanvas()
	tr := newShiftTracker(nil)
	tr.acquire(c)

	c.press(desktop.KeyShiftLeft)
	// the key up happened while another window had focus
	tr.sync(0)
	if tr.isPressed() {
		t.Fatal("expected pointer modifiers to clear a stuck shift")
	}
}
