// Package tray shows the avatar's current gesture in the system tray and
// lets the user pause detection or quit.
package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/pantomime/internal/present"
)

// Tray is the system tray menu.
type Tray struct {
	onToggle func(enabled bool)
	onStatus func()
	onQuit   func()
	enabled  bool
	cue      present.Cue
	mu       sync.RWMutex

	menuToggle  *systray.MenuItem
	menuGesture *systray.MenuItem
}

// New creates a Tray with detection enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback run when detection is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnStatus sets the callback run when the status item is clicked.
func (t *Tray) OnStatus(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStatus = fn
}

// OnQuit sets the callback run when quit is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit, and on macOS it must be
// called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray, unblocking Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	t.mu.Lock()
	systray.SetTitle(titleFor(t.cue))
	systray.SetTooltip("Pantomime gesture responder")

	t.menuToggle = systray.AddMenuItem(toggleLabel(t.enabled), "Pause or resume gesture detection")
	systray.AddSeparator()

	t.menuGesture = systray.AddMenuItem(gestureLabel(t.cue), "Clip the avatar is playing")
	t.menuGesture.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuStatus := systray.AddMenuItem("Open Status...", "Open the status page in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Pantomime")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuStatus.ClickedCh:
				t.mu.RLock()
				cb := t.onStatus
				t.mu.RUnlock()
				if cb != nil {
					cb()
				}
			case <-menuQuit.ClickedCh:
				t.mu.RLock()
				cb := t.onQuit
				t.mu.RUnlock()
				if cb != nil {
					cb()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleLabel(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

// ShowCue records the clip being played and updates the menu if the
// tray is running.
func (t *Tray) ShowCue(cue present.Cue) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cue = cue
	if t.menuGesture != nil {
		t.menuGesture.SetTitle(gestureLabel(cue))
		systray.SetTitle(titleFor(cue))
	}
}

// Follow shows every cue from ch until it closes or ctx is done.
func (t *Tray) Follow(ctx context.Context, ch <-chan present.Cue) {
	for {
		select {
		case <-ctx.Done():
			return
		case cue, ok := <-ch:
			if !ok {
				return
			}
			t.ShowCue(cue)
		}
	}
}

// Cue returns the last cue shown.
func (t *Tray) Cue() present.Cue {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cue
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleLabel(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}

func gestureLabel(cue present.Cue) string {
	if cue.Gesture == "" {
		return "Now: none"
	}
	return "Now: " + cue.Gesture.String()
}

// titleFor marks the tray title while a response is being performed.
func titleFor(cue present.Cue) string {
	if cue.Active {
		return "Pantomime ●"
	}
	return "Pantomime"
}
