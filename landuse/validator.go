package landuse

import (
	"fmt"
	"strings"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/paulmach/orb"
)

// Verdict 校验结果。被拒绝时 Reason 非空，Message 仅用于提示用户。
type Verdict struct {
	Accepted bool            `json:"accepted"`
	Geometry orb.Geometry    `json:"-"`
	Clipped  bool            `json:"clipped"`
	Reason   RejectionReason `json:"reason,omitempty"`
	Message  string          `json:"message,omitempty"`
}

func accept(g orb.Geometry, clipped bool, msg string) Verdict {
	return Verdict{Accepted: true, Geometry: g, Clipped: clipped, Message: msg}
}

func reject(reason RejectionReason, msg string) Verdict {
	return Verdict{Reason: reason, Message: msg}
}

// Validator 优先级校验器，只读取图层状态，不做任何修改
type Validator struct {
	kernel geokernel.Kernel
}

// NewValidator 创建校验器
func NewValidator(k geokernel.Kernel) *Validator {
	return &Validator{kernel: k}
}

// Validate 判断候选几何能否写入类别 c，并给出裁剪后的几何
func (v *Validator) Validate(c Category, candidate orb.Geometry, st *Store) (Verdict, error) {
	if err := checkKind(c, candidate); err != nil {
		return Verdict{}, err
	}
	spec, _ := c.Spec()

	if c == PropertyBoundary {
		if st.boundary() != nil && st.HasDependents() {
			return reject(BoundaryHasDependents, "Clear the other layers before replacing the Property Area."), nil
		}
		return accept(candidate, false, ""), nil
	}

	b := st.boundary()
	if b == nil {
		return reject(NoBoundary, "Property Area must be drawn first."), nil
	}

	switch c {
	case Headquarters:
		inside, err := v.kernel.Contains(b.Geometry, candidate)
		if err != nil {
			return Verdict{}, err
		}
		if !inside {
			return reject(OutsideBoundary, spec.Name+" must be located inside the Property Area."), nil
		}
		return accept(candidate, false, ""), nil

	case Consolidated, Fallow:
		clipped, err := v.kernel.Intersect(candidate, b.Geometry)
		if err != nil {
			return Verdict{}, err
		}
		if geokernel.IsEmpty(clipped) {
			return reject(OutsideBoundary, spec.Name+" must be within the Property Area."), nil
		}
		wasClipped, err := v.differs(clipped, candidate)
		if err != nil {
			return Verdict{}, err
		}
		return v.deferToHigher(c, clipped, wasClipped, st)

	case NativeVegetation:
		clipped, err := v.kernel.Intersect(candidate, b.Geometry)
		if err != nil {
			return Verdict{}, err
		}
		if geokernel.IsEmpty(clipped) {
			return reject(OutsideBoundary, spec.Name+" must be within the Property Area."), nil
		}
		wasClipped, err := v.differs(clipped, candidate)
		if err != nil {
			return Verdict{}, err
		}
		msg := ""
		if wasClipped {
			msg = spec.Name + " has been clipped to the Property Area boundaries."
		}
		return accept(clipped, wasClipped, msg), nil

	case Anthropized:
		inter, err := v.kernel.Intersect(candidate, b.Geometry)
		if err != nil {
			return Verdict{}, err
		}
		if geokernel.IsEmpty(inter) {
			return reject(OutsideBoundary, spec.Name+" must be within the Property Area."), nil
		}
		same, err := v.kernel.Equals(inter, candidate)
		if err != nil {
			return Verdict{}, err
		}
		if same {
			return v.deferToHigher(c, candidate, false, st)
		}
		return v.deferToHigher(c, inter, true, st)
	}
	return Verdict{}, fmt.Errorf("%w: no rule for %s", ErrUnknownCategory, c)
}

func (v *Validator) differs(clipped, candidate orb.Geometry) (bool, error) {
	same, err := v.kernel.Equals(clipped, candidate)
	return !same, err
}

// deferToHigher 从几何中扣除所有更高优先级地类，扣完为空则拒绝
func (v *Validator) deferToHigher(c Category, g orb.Geometry, boundaryClipped bool, st *Store) (Verdict, error) {
	spec, _ := c.Spec()
	var over []string
	for _, hc := range HigherPrecedence(c) {
		hit := false
		for _, h := range st.sorted(hc) {
			overlaps, err := v.kernel.Overlaps(g, h.Geometry)
			if err != nil {
				return Verdict{}, err
			}
			if !overlaps {
				continue
			}
			hit = true
			g, err = v.kernel.Difference(g, h.Geometry)
			if err != nil {
				return Verdict{}, err
			}
			if geokernel.IsEmpty(g) {
				hs, _ := hc.Spec()
				return reject(FullyConsumedByHigherPrecedence,
					fmt.Sprintf("%s would be completely contained by %s areas.", spec.Name, hs.Name)), nil
			}
		}
		if hit {
			hs, _ := hc.Spec()
			over = append(over, hs.Name)
		}
	}

	switch {
	case len(over) > 0:
		return accept(g, true, fmt.Sprintf("%s overlaps with %s. It has been automatically clipped.", spec.Name, strings.Join(over, ", "))), nil
	case boundaryClipped:
		return accept(g, true, spec.Name+" has been clipped to the Property Area boundaries."), nil
	}
	return accept(g, false, ""), nil
}
