package landuse

import (
	"fmt"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/paulmach/orb"
)

// CoverageReport 地类覆盖检查结果
type CoverageReport struct {
	FullyCovered      bool         `json:"fullyCovered"`
	Uncovered         orb.Geometry `json:"-"`
	UncoveredHectares float64      `json:"uncoveredHectares"`
	Message           string       `json:"message"`
}

// CoverageAuditor 检查红线是否被地类完全覆盖，只读
type CoverageAuditor struct {
	kernel geokernel.Kernel
}

// NewCoverageAuditor 创建覆盖检查器
func NewCoverageAuditor(k geokernel.Kernel) *CoverageAuditor {
	return &CoverageAuditor{kernel: k}
}

// Audit 计算红线内未被任何地类覆盖的部分
func (a *CoverageAuditor) Audit(st *Store) (CoverageReport, error) {
	b := st.boundary()
	if b == nil {
		return CoverageReport{Message: "Property Area not defined."}, ErrNoBoundary
	}

	var covers []orb.Geometry
	for _, c := range LandCoverCategories() {
		for _, f := range st.sorted(c) {
			covers = append(covers, f.Geometry)
		}
	}

	uncovered := b.Geometry
	if len(covers) > 0 {
		union, err := a.kernel.Union(covers)
		if err != nil {
			return CoverageReport{}, err
		}
		uncovered, err = a.kernel.Difference(b.Geometry, union)
		if err != nil {
			return CoverageReport{}, err
		}
	}

	if geokernel.IsEmpty(uncovered) {
		return CoverageReport{
			FullyCovered: true,
			Message:      "Property Area is completely covered by land cover layers.",
		}, nil
	}

	ha, err := a.kernel.GeodesicArea(uncovered, geokernel.Hectares)
	if err != nil {
		return CoverageReport{}, err
	}
	msg := fmt.Sprintf("Property Area is not completely covered. Approximately %.2f hectares remain uncovered.", ha)
	if len(covers) == 0 {
		msg = "No land cover areas found."
	}
	return CoverageReport{
		Uncovered:         orb.Clone(uncovered),
		UncoveredHectares: ha,
		Message:           msg,
	}, nil
}
