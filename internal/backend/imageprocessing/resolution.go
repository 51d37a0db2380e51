package imageprocessing

import "strings"

// Brand is the publishing brand selected on upload
type Brand string

const (
	BrandCDC Brand = "CDC"
	BrandTJK Brand = "TJK"
)

// Category is the kind of content the images are prepared for
type Category string

const (
	CategoryArticles   Category = "Articles"
	CategoryWebstories Category = "Webstories"
)

const (
	cdcArticleFeatureWidth    = 1270
	cdcArticleNonFeatureWidth = 1015
	tjkArticleNonFeatureWidth = 700
	webstoryWidth             = 1080

	// DefaultTJKFeatureWidth is the feature width the upload client sends for TJK articles
	DefaultTJKFeatureWidth = 1920
)

// ResolutionPolicy maps brand, category and feature flag to a target width.
// TJKFeatureWidth of 0 leaves that cell unresolved.
type ResolutionPolicy struct {
	TJKFeatureWidth int
}

// DefaultResolutionPolicy returns the policy with the default TJK feature width
func DefaultResolutionPolicy() ResolutionPolicy {
	return ResolutionPolicy{TJKFeatureWidth: DefaultTJKFeatureWidth}
}

// ResolveWidth returns the width for the combination, or false if the
// policy has no answer and the caller must fall back to an override.
func (p ResolutionPolicy) ResolveWidth(brand Brand, category Category, isFeature bool) (int, bool) {
	if category == CategoryWebstories {
		return webstoryWidth, true
	}
	if category != CategoryArticles {
		return 0, false
	}

	switch brand {
	case BrandCDC:
		if isFeature {
			return cdcArticleFeatureWidth, true
		}
		return cdcArticleNonFeatureWidth, true
	case BrandTJK:
		if isFeature {
			if p.TJKFeatureWidth <= 0 {
				return 0, false
			}
			return p.TJKFeatureWidth, true
		}
		return tjkArticleNonFeatureWidth, true
	}
	return 0, false
}

// PolicyEntry is one resolved row of the policy table
type PolicyEntry struct {
	Brand     Brand
	Category  Category
	IsFeature bool
	Width     int
	Resolved  bool
}

// Entries lists every known combination in a stable order
func (p ResolutionPolicy) Entries() []PolicyEntry {
	var entries []PolicyEntry
	for _, brand := range []Brand{BrandCDC, BrandTJK} {
		for _, category := range []Category{CategoryArticles, CategoryWebstories} {
			for _, isFeature := range []bool{true, false} {
				width, ok := p.ResolveWidth(brand, category, isFeature)
				entries = append(entries, PolicyEntry{
					Brand:     brand,
					Category:  category,
					IsFeature: isFeature,
					Width:     width,
					Resolved:  ok,
				})
			}
		}
	}
	return entries
}

// IsFeature reports whether a file is a feature image, which is signalled
// only by "feature" appearing anywhere in its name.
func IsFeature(name string) bool {
	return strings.Contains(strings.ToLower(name), "feature")
}
