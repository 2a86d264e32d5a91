package plan

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Limit is a numeric entitlement value where the absence of a number means unlimited.
// The zero value is unlimited, matching a NULL column.
type Limit struct {
	value   int64
	limited bool
}

// Unlimited returns a limit with no upper bound.
func Unlimited() Limit {
	return Limit{}
}

// Of returns a bounded limit.
func Of(n int64) Limit {
	return Limit{value: n, limited: true}
}

// FromPtr maps a nullable value onto a Limit: nil is unlimited.
func FromPtr(n *int64) Limit {
	if n == nil {
		return Unlimited()
	}
	return Of(*n)
}

// IsUnlimited reports whether the limit has no upper bound.
// Callers must check this before doing arithmetic with Value.
func (l Limit) IsUnlimited() bool {
	return !l.limited
}

// Value returns the bound and true, or 0 and false when unlimited.
func (l Limit) Value() (int64, bool) {
	return l.value, l.limited
}

// Ptr returns the bound as a pointer, nil when unlimited.
func (l Limit) Ptr() *int64 {
	if !l.limited {
		return nil
	}
	v := l.value
	return &v
}

func (l Limit) String() string {
	if !l.limited {
		return "unlimited"
	}
	return strconv.FormatInt(l.value, 10)
}

// MarshalJSON encodes unlimited as null.
func (l Limit) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Ptr())
}

// UnmarshalJSON decodes null as unlimited.
func (l *Limit) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = Unlimited()
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Of(n)
	return nil
}
