package gesture

import (
	"context"
	"errors"
	"testing"

	"github.com/ayusman/pantomime/internal/pose"
	"github.com/ayusman/pantomime/testdata"
)

func poseRef(name Name, s pose.Snapshot) Reference {
	return Reference{Name: name, Pose: &s}
}

func fixtureSource() StaticSource {
	return StaticSource{
		poseRef("idle", testdata.IdlePose()),
		poseRef("wave", testdata.WavePose()),
		poseRef("punch", testdata.PunchPose()),
	}
}

func TestLoad(t *testing.T) {
	lib, err := Load(context.Background(), fixtureSource(), DefaultName)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if lib.Len() != 3 {
		t.Errorf("Len() = %d, want 3", lib.Len())
	}
	names := lib.Names()
	want := []Name{"idle", "wave", "punch"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if lib.Default() != DefaultName {
		t.Errorf("Default() = %q", lib.Default())
	}

	d, ok := lib.Descriptor("wave")
	if !ok || len(d) != pose.DescriptorLen {
		t.Fatalf("Descriptor(wave) = %v, %v", d, ok)
	}
	d[0] = 1e9
	if again, _ := lib.Descriptor("wave"); again[0] == 1e9 {
		t.Error("Descriptor returned shared storage")
	}
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name string
		src  Source
	}{
		{"missing default", StaticSource{
			poseRef("wave", testdata.WavePose()),
			poseRef("punch", testdata.PunchPose()),
		}},
		{"short descriptor", StaticSource{
			poseRef("idle", testdata.IdlePose()),
			{Name: "wave", Descriptor: make(pose.Descriptor, 10)},
		}},
		{"duplicate", StaticSource{
			poseRef("idle", testdata.IdlePose()),
			poseRef("idle", testdata.WavePose()),
		}},
		{"duplicate after case folding", StaticSource{
			poseRef("idle", testdata.IdlePose()),
			poseRef("wave", testdata.WavePose()),
			poseRef("Wave", testdata.PunchPose()),
		}},
		{"bad name", StaticSource{
			poseRef("idle", testdata.IdlePose()),
			poseRef("Wave Hello!", testdata.WavePose()),
		}},
		{"source error", failingSource{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib, err := Load(context.Background(), tt.src, DefaultName)
			if lib != nil {
				t.Error("Load returned a library alongside an error")
			}
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("Load() error = %v, want *LoadError", err)
			}
		})
	}
}

type failingSource struct{}

func (failingSource) References(context.Context) ([]Reference, error) {
	return nil, errors.New("disk on fire")
}
func (failingSource) String() string { return "failing" }

func TestLibrary_Lookup(t *testing.T) {
	lib, err := Load(context.Background(), fixtureSource(), DefaultName)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in      string
		want    Name
		wantErr bool
	}{
		{"wave", "wave", false},
		{"  Punch ", "punch", false},
		{"dance", "", true},
		{"", "", true},
		{"idle; drop table", "", true},
	}
	for _, tt := range tests {
		got, err := lib.Lookup(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownGesture) {
				t.Errorf("Lookup(%q) error = %v, want ErrUnknownGesture", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Lookup(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestLoad_CanonicalizesNames(t *testing.T) {
	lib, err := Load(context.Background(), StaticSource{
		poseRef("Idle", testdata.IdlePose()),
		poseRef("Wave", testdata.WavePose()),
	}, "IDLE")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if lib.Default() != "idle" {
		t.Errorf("Default() = %q, want idle", lib.Default())
	}
	names := lib.Names()
	if len(names) != 2 || names[0] != "idle" || names[1] != "wave" {
		t.Errorf("Names() = %v, want [idle wave]", names)
	}

	m, err := lib.Match(pose.Encode(testdata.WavePose()), MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "wave" {
		t.Errorf("Match() = %q, want wave", m.Name)
	}
	if got, err := lib.Lookup(m.Name.String()); err != nil || got != m.Name {
		t.Errorf("Lookup(%q) = %q, %v", m.Name, got, err)
	}
}

func TestParseName(t *testing.T) {
	for _, ok := range []string{"idle", "wave", "thumbs-up", "punch_2"} {
		if _, err := ParseName(ok); err != nil {
			t.Errorf("ParseName(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "-lead", "has space", "dot.npy", "émoji"} {
		if _, err := ParseName(bad); err == nil {
			t.Errorf("ParseName(%q) should fail", bad)
		}
	}
}
