// Package manifest holds the compiled-in catalog of feature and entitlement keys.
//
// A Manifest is built once at startup and never mutated afterwards. Every
// feature the platform knows about is declared here together with its
// category, whether it is a core feature, and the typed configuration schema
// that registry entries for the key must satisfy.
//
// Core features bypass billing entirely: they are available to every
// organization, including organizations without a subscription row.
//
// Basic usage:
//
//	m := manifest.Default()
//
//	if m.IsCore(manifest.FeatureCMSAccess) {
//	    // always on
//	}
//
//	def, ok := m.Lookup(manifest.FeatureCO2Calculation)
//	if ok {
//	    err := def.ValidateConfig(map[string]any{"methodology": "pef"})
//	}
package manifest
