// Package billing turns billing provider webhooks into subscription
// lifecycle calls.
//
// The provider is the source of billing facts only. Which features and
// limits an organization gets is decided by the capability resolver from the
// rows subscription.Service writes here.
package billing
