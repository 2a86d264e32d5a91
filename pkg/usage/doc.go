// Package usage counts what an organization consumes and enforces resolved
// entitlement limits against it.
//
// Counters are registered per entitlement key at startup. Each counter must
// count a single unambiguous state (published passports, not all passports),
// otherwise a limit check compares against the wrong number.
//
//	reg := usage.NewRegistry()
//	reg.Register(manifest.MaxPublishedDPP, counters.PublishedPassports)
//	enforcer := usage.NewEnforcer(resolver, reg)
//	if err := enforcer.CanCreate(ctx, manifest.MaxPublishedDPP, subject); err != nil {
//		// usage.ErrLimitExceeded or usage.ErrNoActiveSubscription
//	}
package usage
