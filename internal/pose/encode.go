package pose

import (
	"math"

	"github.com/golang/geo/r3"
)

// Bone is a directed (parent, child) pair of landmark indices.
type Bone struct {
	Parent int
	Child  int
}

// Bones is the fixed skeleton used for encoding. Order matters: descriptor
// slots 2i and 2i+1 belong to Bones[i].
var Bones = [...]Bone{
	{RightShoulder, LeftShoulder},
	{RightShoulder, RightHip},
	{RightHip, RightKnee},
	{RightKnee, RightAnkle},
	{RightShoulder, RightElbow},
	{RightElbow, RightWrist},
	{LeftShoulder, LeftHip},
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},
	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftWrist},
	{RightShoulder, Nose},
	{LeftShoulder, Nose},
}

// DescriptorLen is the number of values Encode produces.
const DescriptorLen = 2 * len(Bones)

// Descriptor holds (azimuth, elevation) in radians for each bone, interleaved.
type Descriptor []float64

// Encode turns a snapshot into its angular descriptor. Each bone vector is
// scaled by the product of both endpoints' visibility, so bones the
// estimator is unsure of shrink toward the origin. Both angles are ratios of
// the displacement, which makes the result independent of where the body
// stands and how large it appears.
func Encode(s Snapshot) Descriptor {
	out := make(Descriptor, 0, DescriptorLen)
	for _, b := range Bones {
		p, c := s.Landmarks[b.Parent], s.Landmarks[b.Child]
		w := p.Visibility * c.Visibility
		if w == 0 {
			// Scaling by zero leaves -0 on negative components, and
			// atan2(0, -0) is pi. An unseen bone contributes exact zeros.
			out = append(out, 0, 0)
			continue
		}
		d := position(c).Sub(position(p)).Mul(w)
		azimuth := math.Atan2(d.Y, d.X)
		elevation := math.Atan2(d.Z, math.Hypot(d.X, d.Y))
		out = append(out, azimuth, elevation)
	}
	return out
}

func position(lm Landmark) r3.Vector {
	return r3.Vector{X: lm.X, Y: lm.Y, Z: lm.Z}
}
