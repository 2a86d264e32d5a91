package manifest

// Core features.
const (
	FeaturePassportManagement   Key = "passport_management"
	FeatureCMSAccess            Key = "cms_access"
	FeatureOrganizationSettings Key = "organization_settings"
)

// Optional features gated by billing.
const (
	FeatureStorytellingBlocks Key = "storytelling_blocks"
	FeatureCO2Calculation     Key = "co2_calculation"
	FeatureCSVImport          Key = "csv_import"
	FeatureCustomDomain       Key = "custom_domain"
	FeatureAPIAccess          Key = "api_access"
	FeatureQRBranding         Key = "qr_branding"
	FeatureAnalyticsDashboard Key = "analytics_dashboard"
	FeatureMultiLanguage      Key = "multi_language"
	FeatureSupplierPortal     Key = "supplier_portal"
	FeatureAuditExport        Key = "audit_export"
)

// Entitlement keys.
const (
	MaxPublishedDPP EntitlementKey = "max_published_dpp"
	MaxDraftDPP     EntitlementKey = "max_draft_dpp"
	MaxTeamMembers  EntitlementKey = "max_team_members"
	MaxStorageMB    EntitlementKey = "max_storage_mb"
	MaxAPIKeys      EntitlementKey = "max_api_keys"
	MaxLanguages    EntitlementKey = "max_languages"
)

var defaultCatalog = []Definition{
	{Key: FeaturePassportManagement, Core: true, Category: CategoryCore},
	{Key: FeatureCMSAccess, Core: true, Category: CategoryCore},
	{Key: FeatureOrganizationSettings, Core: true, Category: CategoryCore},

	{Key: FeatureStorytellingBlocks, Category: CategoryContent, Config: ConfigSchema{
		{Name: "max_blocks_per_page", Kind: KindInt},
		{Name: "video_blocks", Kind: KindBool},
	}},
	{Key: FeatureCO2Calculation, Category: CategorySustainability, Config: ConfigSchema{
		{Name: "methodology", Kind: KindString, Enum: []string{"pef", "ghg_protocol", "iso_14067"}},
	}},
	{Key: FeatureCSVImport, Category: CategoryPassport, Config: ConfigSchema{
		{Name: "max_rows", Kind: KindInt},
	}},
	{Key: FeatureCustomDomain, Category: CategoryBranding},
	{Key: FeatureAPIAccess, Category: CategoryIntegration, Config: ConfigSchema{
		{Name: "rate_limit_per_minute", Kind: KindInt},
	}},
	{Key: FeatureQRBranding, Category: CategoryBranding},
	{Key: FeatureAnalyticsDashboard, Category: CategoryAnalytics, Config: ConfigSchema{
		{Name: "retention_days", Kind: KindInt},
	}},
	{Key: FeatureMultiLanguage, Category: CategoryContent},
	{Key: FeatureSupplierPortal, Category: CategoryIntegration},
	{Key: FeatureAuditExport, Category: CategoryAdministration, Config: ConfigSchema{
		{Name: "format", Kind: KindString, Enum: []string{"csv", "json"}},
	}},
}

var defaultEntitlements = []EntitlementKey{
	MaxPublishedDPP,
	MaxDraftDPP,
	MaxTeamMembers,
	MaxStorageMB,
	MaxAPIKeys,
	MaxLanguages,
}

// Default returns the platform's compiled-in catalog.
func Default() *Manifest {
	return MustNew(defaultCatalog, defaultEntitlements)
}
