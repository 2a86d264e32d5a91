// Package api exposes the capability resolver over HTTP.
//
// Routes under /v1 act for the organization named by the trusted identity
// headers (see package org). Admin routes require a bearer token and are not
// mounted when none is configured. Decisions and grants are returned as-is;
// the resolver's rule and reason fields are machine codes for the client to
// render.
package api
