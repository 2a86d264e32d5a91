// Package capability decides which features an organization may use and which
// numeric limits apply to it.
//
// A Resolver composes the feature manifest, the feature registry, the
// subscription lifecycle, entitlement snapshots and trial overrides in a fixed
// order. For features, the first matching rule wins:
//
//  1. Core features are always allowed.
//  2. A missing or disabled registry entry denies.
//  3. During a trial, an override on the subscription model decides verbatim.
//  4. During a trial without an override, the registry's usable-in-trial flag
//     and then the target plan's inclusion table decide.
//  5. An active subscription uses its plan's inclusion table.
//  6. Otherwise the feature is allowed only if it is visible in trial or its
//     minimum plan is free.
//
// Entitlements follow the same shape: a trial override, then the target
// plan's live value during a trial, the frozen snapshot while active, and an
// explicit inactive grant for everything else. An unlimited value is never
// a number; check Limit.IsUnlimited before arithmetic.
//
// Resolution never caches across calls and never writes, except for the trial
// expiry transition performed by the subscription classifier. Lookup failures
// are returned as errors joined with ErrLookupFailed and are never reported
// as denials.
//
//	r := capability.New(manifest.Default(), registryStore, subStore, planStore,
//		snapshotStore, trialStore,
//		capability.WithLogger(log),
//		capability.WithMetrics(capability.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	ok, err := r.ResolveFeature(ctx, manifest.FeatureCO2Calculation, subject)
//	check, err := r.CheckLimit(ctx, manifest.MaxPublishedDPP, published, subject)
package capability
