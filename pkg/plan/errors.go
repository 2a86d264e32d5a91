package plan

import "errors"

var (
	ErrPlanNotFound             = errors.New("plan: pricing plan not found")
	ErrModelNotFound            = errors.New("plan: subscription model not found")
	ErrInvalidTier              = errors.New("plan: invalid tier")
	ErrInvalidPlanConfiguration = errors.New("plan: invalid plan configuration")
	ErrInvalidModel             = errors.New("plan: invalid subscription model")
)
