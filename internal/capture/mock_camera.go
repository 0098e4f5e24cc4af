package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoMoreFrames is returned by a non-looping MockCamera once it has
// played every frame.
var ErrNoMoreFrames = errors.New("no more frames")

// MockCamera synthesizes solid-colour frames. Each frame is a shade brighter
// than the last, so consecutive frames register as motion when Alternate is set.
type MockCamera struct {
	mu        sync.Mutex
	width     int
	height    int
	remaining int
	loop      bool
	open      bool
	fps       int
	shade     uint8
	reads     int
	alternate bool
	fpsLog    []int
}

// NewMockCamera returns a camera that yields count frames, or an endless
// stream when count is negative.
func NewMockCamera(count int) *MockCamera {
	return &MockCamera{
		width:     64,
		height:    48,
		remaining: count,
		loop:      count < 0,
		fps:       DefaultIdleFPS,
	}
}

// Alternate makes successive frames swap between black and white.
func (c *MockCamera) Alternate(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alternate = on
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if !c.loop {
		if c.remaining <= 0 {
			return nil, ErrNoMoreFrames
		}
		c.remaining--
	}

	if c.alternate {
		c.shade = 255 - c.shade
	}
	c.reads++

	mat := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.shade), float64(c.shade), float64(c.shade), 0),
		c.height, c.width, gocv.MatTypeCV8UC3,
	)
	return &mat, nil
}

func (c *MockCamera) SetFPS(fps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
	c.fpsLog = append(c.fpsLog, fps)
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads returns how many frames have been handed out.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// RateChanges returns every rate passed to SetFPS, in order.
func (c *MockCamera) RateChanges() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.fpsLog...)
}
