package capture

import (
	"errors"
	"testing"
)

func TestMockCamera_Finite(t *testing.T) {
	cam := NewMockCamera(2)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Fatalf("ReadFrame() before Open = %v, want ErrCameraNotOpen", err)
	}

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	for i := 0; i < 2; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() %d error = %v", i, err)
		}
		if f.Empty() {
			t.Errorf("frame %d is empty", i)
		}
		f.Close()
	}

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoMoreFrames) {
		t.Errorf("ReadFrame() after last frame = %v, want ErrNoMoreFrames", err)
	}
	if cam.Reads() != 2 {
		t.Errorf("Reads() = %d, want 2", cam.Reads())
	}
}

func TestMockCamera_Endless(t *testing.T) {
	cam := NewMockCamera(-1)
	cam.Open()
	defer cam.Close()

	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}

func TestMockCamera_RecordsRateChanges(t *testing.T) {
	cam := NewMockCamera(0)
	cam.SetFPS(15)
	cam.SetFPS(5)

	got := cam.RateChanges()
	if len(got) != 2 || got[0] != 15 || got[1] != 5 {
		t.Errorf("RateChanges() = %v, want [15 5]", got)
	}
	if cam.FPS() != 5 {
		t.Errorf("FPS() = %d, want 5", cam.FPS())
	}
}
