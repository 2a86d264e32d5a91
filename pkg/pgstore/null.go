package pgstore

import (
	"time"

	"github.com/dppkit/dppkit/pkg/plan"
)

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func limitFromNull(v *int64) plan.Limit {
	return plan.FromPtr(v)
}
