// Package trial stores per-model overrides that apply while an organization is
// inside its trial window.
//
// Overrides hang off a subscription model, not a subscription, and are read
// live: an admin edit affects every organization currently trialing on that
// model. A feature override may enable or disable a feature regardless of plan
// inclusion; an entitlement override replaces the numeric value, nil meaning
// unlimited.
package trial
