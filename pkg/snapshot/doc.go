// Package snapshot stores entitlement values frozen onto a subscription.
//
// A snapshot is taken when a subscription is activated or moved to another
// plan. Every Take writes a new generation; rows of earlier generations are
// never updated, and reads always see the latest generation. Editing a plan's
// live entitlement table therefore never changes what existing subscribers
// were sold.
//
//	gen, err := store.Take(ctx, sub.ID, p.ID, p.Entitlements)
//	limit, err := store.Get(ctx, sub.ID, manifest.MaxPublishedDPP)
package snapshot
