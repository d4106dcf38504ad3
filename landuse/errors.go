package landuse

import "errors"

var (
	ErrNoBoundary           = errors.New("property boundary not defined")
	ErrConfirmationRequired = errors.New("removing the property boundary removes every other layer and must be confirmed")
	ErrFeatureNotFound      = errors.New("feature not found")
	ErrAlwaysVisible        = errors.New("layer must remain visible")
	ErrGeometryKind         = errors.New("geometry type does not match layer")
	ErrUnknownCategory      = errors.New("unknown layer category")
)

// RejectionReason 业务规则拒绝原因，属于正常结果，不作为 error 返回
type RejectionReason string

const (
	NoRejection                     RejectionReason = ""
	NoBoundary                      RejectionReason = "NoBoundary"
	BoundaryHasDependents           RejectionReason = "BoundaryHasDependents"
	OutsideBoundary                 RejectionReason = "OutsideBoundary"
	FullyConsumedByHigherPrecedence RejectionReason = "FullyConsumedByHigherPrecedence"
)

// InvariantError 一致性检查失败
type InvariantError struct {
	Category Category
	ID       FeatureID
	Problem  string
}

func (e *InvariantError) Error() string {
	if e.ID == 0 {
		return "layer " + e.Category.String() + ": " + e.Problem
	}
	return "layer " + e.Category.String() + " feature " + e.ID.String() + ": " + e.Problem
}
