package capability

import "errors"

// ErrLookupFailed wraps persistence failures. It is never a business denial.
var ErrLookupFailed = errors.New("capability: lookup failed")
