package scrape

// Selectors are the CSS selectors used to locate page elements.
// Zero fields fall back to the defaults.
type Selectors struct {
	// BreadcrumbContainer wraps the navigation trail.
	BreadcrumbContainer string `yaml:"breadcrumbContainer,omitempty"`

	// BreadcrumbLinks selects the trail entries inside the container.
	// The label is read from the entry's inner span.
	BreadcrumbLinks string `yaml:"breadcrumbLinks,omitempty"`

	// Listing selects the row links of a folder's listing table.
	Listing string `yaml:"listing,omitempty"`
}

// Default selectors for the Thorn knowledge base.
const (
	DefaultBreadcrumbContainer = ".content-nav.break-work-break-all"
	DefaultBreadcrumbLinks     = `a[href*="#/folders/"], a[href*="#/category/"]`
	DefaultListing             = ".post-table tbody a[href]"
)

// DefaultSelectors returns the built-in selectors.
func DefaultSelectors() Selectors {
	return Selectors{
		BreadcrumbContainer: DefaultBreadcrumbContainer,
		BreadcrumbLinks:     DefaultBreadcrumbLinks,
		Listing:             DefaultListing,
	}
}

// withDefaults fills empty fields from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if s.BreadcrumbContainer == "" {
		s.BreadcrumbContainer = d.BreadcrumbContainer
	}
	if s.BreadcrumbLinks == "" {
		s.BreadcrumbLinks = d.BreadcrumbLinks
	}
	if s.Listing == "" {
		s.Listing = d.Listing
	}
	return s
}
