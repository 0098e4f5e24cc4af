package gesture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/pantomime/internal/pose"
)

const refExt = ".npy"

// DirSource reads one NumPy array per gesture from a directory, named
// <gesture>.npy. A (33, >=4) array is a reference pose; a flat array of
// pose.DescriptorLen values is a pre-encoded descriptor. Files load in
// lexical order.
type DirSource struct {
	Dir string
}

func (s DirSource) String() string { return s.Dir }

func (s DirSource) References(ctx context.Context) ([]Reference, error) {
	paths, err := filepath.Glob(filepath.Join(s.Dir, "*"+refExt))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		if _, err := os.Stat(s.Dir); err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)

	refs := make([]Reference, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := Name(strings.TrimSuffix(filepath.Base(path), refExt))
		ref, err := readReference(path)
		if err != nil {
			return nil, &LoadError{Source: s.Dir, Name: name, Err: err}
		}
		ref.Name = name
		refs = append(refs, ref)
	}
	return refs, nil
}

// Save writes snap as <name>.npy with shape (33, 4), replacing any existing file.
func (s DirSource) Save(name Name, snap pose.Snapshot) error {
	if _, err := ParseName(string(name)); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create reference dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+string(name)+"-*"+refExt)
	if err != nil {
		return fmt.Errorf("create reference file: %w", err)
	}
	defer os.Remove(tmp.Name())

	m := mat.NewDense(pose.NumLandmarks, pose.ChannelsPerMark, snap.Rows())
	if err := npyio.Write(tmp, m); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.Dir, string(name)+refExt))
}

func readReference(path string) (Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return Reference{}, err
	}
	defer f.Close()
	return decodeReference(f)
}

func decodeReference(r io.Reader) (Reference, error) {
	npy, err := npyio.NewReader(r)
	if err != nil {
		return Reference{}, fmt.Errorf("read npy header: %w", err)
	}
	shape := npy.Header.Descr.Shape

	var data []float64
	switch npy.Header.Descr.Type {
	case "<f8", "f8", "float64":
		if err := npy.Read(&data); err != nil {
			return Reference{}, fmt.Errorf("read npy data: %w", err)
		}
	case "<f4", "f4", "float32":
		var f32 []float32
		if err := npy.Read(&f32); err != nil {
			return Reference{}, fmt.Errorf("read npy data: %w", err)
		}
		data = make([]float64, len(f32))
		for i, v := range f32 {
			data[i] = float64(v)
		}
	default:
		return Reference{}, fmt.Errorf("unsupported npy dtype %q", npy.Header.Descr.Type)
	}

	switch {
	case len(shape) == 1 && shape[0] == pose.DescriptorLen:
		return Reference{Descriptor: pose.Descriptor(data)}, nil
	case len(shape) == 2 && shape[0] == pose.NumLandmarks && shape[1] >= pose.ChannelsPerMark:
		if npy.Header.Descr.Fortran {
			data = transpose(data, shape[0], shape[1])
		}
		snap, err := pose.SnapshotFromRows(data, shape[1])
		if err != nil {
			return Reference{}, err
		}
		return Reference{Pose: &snap}, nil
	}
	return Reference{}, fmt.Errorf("array shape %v is neither (%d, >=%d) nor (%d,)",
		shape, pose.NumLandmarks, pose.ChannelsPerMark, pose.DescriptorLen)
}

// transpose converts column-major rows x cols data to row-major.
func transpose(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[r*cols+c] = data[c*rows+r]
		}
	}
	return out
}
