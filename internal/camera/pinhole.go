package camera

import (
	"github.com/Faultbox/arcalib/pkg/geom"
)

// Default Nelder-Mead budgets.
const (
	DefaultRefineEvaluations = 4000
	DefaultPoseEvaluations   = 800
)

// Pinhole is the pure-Go camera geometry backend. The zero value skips all
// iterative refinement and uses closed-form estimates only.
type Pinhole struct {
	// RefineEvaluations bounds the Nelder-Mead polish of a calibration.
	RefineEvaluations int
	// PoseEvaluations bounds the Nelder-Mead polish of each solved pose.
	PoseEvaluations int
}

// NewPinhole returns a backend with the default refinement budgets.
func NewPinhole() *Pinhole {
	return &Pinhole{
		RefineEvaluations: DefaultRefineEvaluations,
		PoseEvaluations:   DefaultPoseEvaluations,
	}
}

// ProjectPoints projects target-space points through the model.
func (p *Pinhole) ProjectPoints(obj []geom.Vec3, pose Pose, model Model) []geom.Vec2 {
	return model.ProjectPoints(obj, pose)
}

// SolvePose estimates the board pose from planar object points and their
// detected pixels. It reports false when the points are unusable.
func (p *Pinhole) SolvePose(obj []geom.Vec3, img []geom.Vec2, model Model) (Pose, bool) {
	if len(obj) != len(img) || len(obj) < 4 {
		return Pose{}, false
	}
	if checkPlanar(obj) != nil {
		return Pose{}, false
	}

	normalized := make([]geom.Vec2, len(img))
	for i, px := range img {
		normalized[i] = model.Normalize(px)
	}
	h, err := findHomography(planarXY(obj), normalized)
	if err != nil {
		return Pose{}, false
	}
	pose, err := poseFromHomography(h, geom.Identity3())
	if err != nil {
		return Pose{}, false
	}

	pose = p.refinePose(model, obj, img, pose)
	if !poseUsable(pose) {
		return Pose{}, false
	}
	return pose, true
}

func poseUsable(p Pose) bool {
	for _, v := range p.Rotation {
		if !isFinite(v) {
			return false
		}
	}
	t := p.Translation
	return isFinite(t.X) && isFinite(t.Y) && isFinite(t.Z) && t.Z > 0
}
