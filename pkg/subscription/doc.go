// Package subscription holds the per-organization subscription record, the
// lifecycle classifier and the validating write path.
//
// Every organization has at most one subscription row. The absence of a row
// is a valid state and classifies as ClassNone.
//
// # Classification
//
// Classifier.Classify maps a stored row onto a Class. A trial whose window has
// passed is expired on the spot through Store.ExpireTrial, a conditional
// update that only matches rows still in a trial status. Concurrent callers
// racing past the boundary all observe the same class and at most one of them
// changes the row.
//
//	class, err := classifier.Classify(ctx, sub, model)
//
// # Writes
//
// Service is the only write path. It rejects a trial without a subscription
// model, enforces the lifecycle transition table, and takes an entitlement
// snapshot whenever a subscription is activated or moved to another plan.
//
//	svc := subscription.NewService(store, plans, snapshots,
//		subscription.WithLogger(log),
//	)
//	sub, err := svc.StartTrial(ctx, orgID, modelID)
//
// DegradeInvalidTrials is an idempotent cleanup pass for legacy rows that
// carry a trial status without a model.
package subscription
