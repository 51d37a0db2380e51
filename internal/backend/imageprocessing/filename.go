package imageprocessing

import (
	"path"
	"regexp"
	"strings"
)

const outputExtension = ".webp"

var (
	knownExtensionPattern = regexp.MustCompile(`(?i)\.(jpe?g|png|webp)$`)
	whitespacePattern     = regexp.MustCompile(`\s+`)
)

// allowedExtensions are the accepted upload types
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// IsAllowedImage reports whether the file name carries an accepted image extension
func IsAllowedImage(name string) bool {
	return allowedExtensions[strings.ToLower(path.Ext(strings.TrimSpace(name)))]
}

// NormalizeFileName derives the stored name of an uploaded file:
// "My Feature Photo.JPG" becomes "my-feature-photo.webp".
func NormalizeFileName(originalName string) string {
	name := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	name = strings.TrimSpace(name)
	name = knownExtensionPattern.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	name = whitespacePattern.ReplaceAllString(name, "-")
	name = strings.ToLower(name)
	// leading dots would hide the object from listings
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "image"
	}
	return name + outputExtension
}
