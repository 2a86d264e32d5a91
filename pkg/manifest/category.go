package manifest

// Category is the closed set of groups a feature can belong to.
type Category string

const (
	CategoryCore           Category = "core"
	CategoryPassport       Category = "passport"
	CategoryContent        Category = "content"
	CategorySustainability Category = "sustainability"
	CategoryIntegration    Category = "integration"
	CategoryBranding       Category = "branding"
	CategoryAnalytics      Category = "analytics"
	CategoryAdministration Category = "administration"
)

var categories = map[Category]struct{}{
	CategoryCore:           {},
	CategoryPassport:       {},
	CategoryContent:        {},
	CategorySustainability: {},
	CategoryIntegration:    {},
	CategoryBranding:       {},
	CategoryAnalytics:      {},
	CategoryAdministration: {},
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// ParseCategory converts a raw string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", ErrUnknownCategory
	}
	return c, nil
}
