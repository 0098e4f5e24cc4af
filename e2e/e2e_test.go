package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/pantomime/internal/capture"
	"github.com/ayusman/pantomime/internal/gesture"
	"github.com/ayusman/pantomime/internal/interpret"
	"github.com/ayusman/pantomime/internal/pipeline"
	"github.com/ayusman/pantomime/internal/pose"
	"github.com/ayusman/pantomime/internal/present"
	"github.com/ayusman/pantomime/internal/server"
	"github.com/ayusman/pantomime/internal/store"
	"github.com/ayusman/pantomime/internal/stream"
	"github.com/ayusman/pantomime/internal/timeutil"
	"github.com/ayusman/pantomime/testdata"
)

// steppingSource advances the mock clock by one second before every frame,
// so replayed frames land in windows the way a 1 fps camera would.
type steppingSource struct {
	capture.Source
	clock *timeutil.MockClock
}

func (s *steppingSource) Next(ctx context.Context) (pose.Frame, error) {
	s.clock.Advance(time.Second)
	return s.Source.Next(ctx)
}

func train(t *testing.T, client *http.Client, url, name string, snap pose.Snapshot) {
	t.Helper()

	resp, err := client.Post(url+"/api/gestures", "application/json", strings.NewReader(`{"name": "`+name+`"}`))
	if err != nil {
		t.Fatalf("create %s error = %v", name, err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create %s status = %d, want %d", name, resp.StatusCode, http.StatusCreated)
	}
	var created store.Gesture
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	sample, _ := json.Marshal(gesture.Sample{Landmarks: snap.Landmarks[:], Timestamp: 1})
	resp, err = client.Post(url+"/api/gestures/"+created.ID+"/samples", "application/json",
		strings.NewReader(`{"samples":[`+string(sample)+`]}`))
	if err != nil {
		t.Fatalf("train %s error = %v", name, err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("train %s status = %d, want %d", name, resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()
}

// replay encodes frames as JSON lines and reads them back the way the
// -replay flag does.
func replay(t *testing.T, frames []pose.Frame) *capture.ReplaySource {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, f := range frames {
		if err := enc.Encode(f); err != nil {
			t.Fatalf("encode frame: %v", err)
		}
	}
	loaded, err := capture.LoadReplay(&buf)
	if err != nil {
		t.Fatalf("LoadReplay() error = %v", err)
	}
	if len(loaded) != len(frames) {
		t.Fatalf("LoadReplay() = %d frames, want %d", len(loaded), len(frames))
	}
	return capture.NewReplaySource(loaded, false)
}

func repeat(s pose.Snapshot, n int) []pose.Frame {
	frames := make([]pose.Frame, n)
	for i := range frames {
		frames[i] = testdata.Frame(s, testdata.Epoch)
	}
	return frames
}

func TestE2E_TrainReplayPresent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	ts := httptest.NewServer(server.New(server.Config{Store: s}))
	defer ts.Close()

	train(t, ts.Client(), ts.URL, "idle", testdata.IdlePose())
	train(t, ts.Client(), ts.URL, "wave", testdata.WavePose())
	train(t, ts.Client(), ts.URL, "punch", testdata.PunchPose())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lib, err := gesture.Load(ctx, s.LibrarySource(), gesture.DefaultName)
	if err != nil {
		t.Fatalf("gesture.Load() error = %v", err)
	}
	if lib.Len() != 3 {
		t.Fatalf("library has %d gestures, want 3", lib.Len())
	}

	// A window opens on its first frame and is closed by the first frame
	// more than six seconds later, which is itself dropped.
	var frames []pose.Frame
	frames = append(frames, repeat(testdata.WavePose(), 7)...)
	frames = append(frames, repeat(testdata.PunchPose(), 8)...)
	frames = append(frames, repeat(testdata.IdlePose(), 1)...)

	clock := timeutil.NewMockClock(testdata.Epoch)
	src := &steppingSource{Source: replay(t, frames), clock: clock}

	cfg := pipeline.DefaultConfig()
	cfg.StatsInterval = 0
	signals := pipeline.NewSignals()
	coord := pipeline.New(cfg, lib, src, signals, clock)

	cues := stream.NewQueue[gesture.Name](stream.DefaultCapacity)
	stage := interpret.NewStage(interpret.Echo{}, lib, coord.Outbound(), cues, time.Second)
	director := present.NewDirector(present.DefaultConfig(), lib, cues, signals, clock)

	if err := coord.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	go stage.Run(ctx)
	defer coord.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for cues.Len() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("cue queue has %d entries, want 2 (status %s)", cues.Len(), coord.Status())
		}
		time.Sleep(5 * time.Millisecond)
	}

	st := coord.Status()
	if st.Quantizer.Published != 2 {
		t.Errorf("published = %d, want 2", st.Quantizer.Published)
	}

	steps := []struct {
		gesture gesture.Name
		active  bool
	}{
		{"wave", true},
		{"punch", true},
		{"idle", false},
	}
	for i, step := range steps {
		cue := director.Next()
		if cue.Gesture != step.gesture || cue.Active != step.active {
			t.Errorf("cue %d = %s (active %v), want %s (active %v)", i, cue.Gesture, cue.Active, step.gesture, step.active)
		}
		if signals.Active() != step.active {
			t.Errorf("cue %d: activity flag = %v, want %v", i, signals.Active(), step.active)
		}
	}

	if got := stage.Stats(); got.Forwarded != 2 || got.Failed != 0 {
		t.Errorf("stage stats = %+v", got)
	}
}

func TestE2E_StopOverHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	lib, err := gesture.Load(context.Background(), gesture.StaticSource{
		{Name: "idle", Pose: snapshot(testdata.IdlePose())},
	}, gesture.DefaultName)
	if err != nil {
		t.Fatalf("gesture.Load() error = %v", err)
	}

	cfg := pipeline.DefaultConfig()
	cfg.StatsInterval = 0
	signals := pipeline.NewSignals()
	coord := pipeline.New(cfg, lib, capture.NewReplaySource(repeat(testdata.IdlePose(), 1), true), signals, nil)
	if err := coord.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ts := httptest.NewServer(server.New(server.Config{Controller: coord, Signals: signals}))
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/stop error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("stop status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	select {
	case <-signals.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stop signal not raised")
	}

	done := make(chan struct{})
	go func() {
		coord.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop")
	}
	if coord.Status().Running {
		t.Error("pipeline still reports running")
	}
}

func snapshot(s pose.Snapshot) *pose.Snapshot { return &s }
