package capability

import (
	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/subscription"
)

// Rule names the precedence rule that produced a decision.
type Rule string

const (
	RuleUnknownKey       Rule = "unknown_key"
	RuleCore             Rule = "core"
	RuleRegistryMissing  Rule = "registry_missing"
	RuleRegistryDisabled Rule = "registry_disabled"
	RuleTrialOverride    Rule = "trial_override"
	RuleTrialNotUsable   Rule = "trial_not_usable"
	RuleTrialPlan        Rule = "trial_plan"
	RuleActivePlan       Rule = "active_plan"
	RuleInactive         Rule = "inactive"
)

// Reason is a machine-readable denial reason. Callers turn it into user text.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnknownFeature  Reason = "unknown_feature"
	ReasonFeatureDisabled Reason = "feature_disabled"
	ReasonTrialDisabled   Reason = "trial_disabled"
	ReasonRequiresPlan    Reason = "requires_plan"
)

// Decision is the outcome of resolving one feature.
// RequiredTier is the registry's minimum plan and is set on plan denials only.
type Decision struct {
	Key          manifest.Key       `json:"key"`
	Allowed      bool               `json:"allowed"`
	Rule         Rule               `json:"rule"`
	Class        subscription.Class `json:"class,omitempty"`
	Reason       Reason             `json:"reason,omitempty"`
	RequiredTier plan.Tier          `json:"required_tier,omitempty"`
}

// Source names where an entitlement value came from.
// SourceSnapshotMissing marks an active subscription whose snapshot lacks the
// key; it grants zero.
type Source string

const (
	SourceUnknownKey      Source = "unknown_key"
	SourceTrialOverride   Source = "trial_override"
	SourceTrialPlan       Source = "trial_plan"
	SourceSnapshot        Source = "snapshot"
	SourceSnapshotMissing Source = "snapshot_missing"
	SourceNone            Source = "none"
)

// Grant is the outcome of resolving one entitlement.
// When Active is false there is no grant and Limit carries no meaning.
type Grant struct {
	Key    manifest.EntitlementKey `json:"key"`
	Limit  plan.Limit              `json:"limit"`
	Active bool                    `json:"active"`
	Source Source                  `json:"source"`
	Class  subscription.Class      `json:"class,omitempty"`
}

// LimitCheck is the outcome of comparing usage against a grant.
// Limit and Remaining are nil when the grant is unlimited or inactive.
type LimitCheck struct {
	Key       manifest.EntitlementKey `json:"key"`
	Allowed   bool                    `json:"allowed"`
	Active    bool                    `json:"active"`
	Usage     int64                   `json:"usage"`
	Limit     *int64                  `json:"limit"`
	Remaining *int64                  `json:"remaining"`
	Source    Source                  `json:"source"`
}
