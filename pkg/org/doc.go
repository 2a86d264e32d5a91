// Package org carries the caller's organization and user through a request.
//
// Authentication happens upstream. Middleware trusts the X-Organization-ID
// and X-User-ID headers set by the auth proxy and rejects requests whose
// organization id is missing or malformed.
package org
