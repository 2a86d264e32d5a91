// Package httpserver runs an http.Server until its context is cancelled and
// then shuts it down gracefully.
package httpserver
