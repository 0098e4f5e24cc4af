package interpret

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/pantomime/internal/gesture"
	"github.com/ayusman/pantomime/internal/stream"
	"github.com/ayusman/pantomime/testdata"
)

type scripted struct {
	replies []string
	err     error
	seen    []string
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Interpret(_ context.Context, gesture string, options []string) ([]string, error) {
	s.seen = options
	return s.replies, s.err
}

func newLibrary(t *testing.T) *gesture.Library {
	t.Helper()
	wave, idle, punch := testdata.WavePose(), testdata.IdlePose(), testdata.PunchPose()
	lib, err := gesture.Load(context.Background(), gesture.StaticSource{
		{Name: "wave", Pose: &wave},
		{Name: "idle", Pose: &idle},
		{Name: "punch", Pose: &punch},
	}, gesture.DefaultName)
	require.NoError(t, err)
	return lib
}

func drain(q *stream.Queue[gesture.Name]) []gesture.Name {
	var out []gesture.Name
	for {
		n, ok := q.TryPop()
		if !ok {
			return out
		}
		out = append(out, n)
	}
}

func TestStage_OptionsListDefaultFirst(t *testing.T) {
	s := NewStage(Echo{}, newLibrary(t), stream.NewQueue[gesture.Name](1), stream.NewQueue[gesture.Name](1), 0)
	assert.Equal(t, []string{"idle", "wave", "punch"}, s.Options())
	assert.Equal(t, DefaultTimeout, s.timeout)
}

func TestStage_Handle(t *testing.T) {
	tests := []struct {
		name     string
		interp   *scripted
		want     []gesture.Name
		failed   uint64
		rejected uint64
	}{
		{"forwards valid", &scripted{replies: []string{"punch", "wave"}}, []gesture.Name{"punch", "wave"}, 0, 0},
		{"normalizes case", &scripted{replies: []string{"Punch"}}, []gesture.Name{"punch"}, 0, 0},
		{"rejects unknown", &scripted{replies: []string{"dance", "idle"}}, []gesture.Name{"idle"}, 0, 1},
		{"empty reply", &scripted{}, nil, 0, 0},
		{"error falls back to match", &scripted{err: errors.New("offline")}, []gesture.Name{"wave"}, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := stream.NewQueue[gesture.Name](4)
			s := NewStage(tt.interp, newLibrary(t), stream.NewQueue[gesture.Name](1), out, time.Second)

			s.Handle(context.Background(), "wave")

			assert.Equal(t, tt.want, drain(out))
			st := s.Stats()
			assert.Equal(t, uint64(1), st.Received)
			assert.Equal(t, tt.failed, st.Failed)
			assert.Equal(t, tt.rejected, st.Rejected)
			assert.Equal(t, uint64(len(tt.want)), st.Forwarded)
		})
	}
}

func TestStage_DropsWhenPresentationFull(t *testing.T) {
	out := stream.NewQueue[gesture.Name](1)
	s := NewStage(&scripted{replies: []string{"punch", "wave"}}, newLibrary(t), stream.NewQueue[gesture.Name](1), out, time.Second)

	s.Handle(context.Background(), "idle")

	assert.Equal(t, []gesture.Name{"punch"}, drain(out))
	assert.Equal(t, uint64(1), s.Stats().Dropped)
}

func TestStage_Run(t *testing.T) {
	in := stream.NewQueue[gesture.Name](4)
	out := stream.NewQueue[gesture.Name](4)
	s := NewStage(Echo{}, newLibrary(t), in, out, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	in.TryPush("punch")
	got, err := out.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, gesture.Name("punch"), got)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
