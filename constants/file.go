package constants

import "strings"

// Media types a job can declare for its input.
const (
	TXT   = "TXT"
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// MediaTypes holds the allowed values for the media_type field on a job.
var MediaTypes = []string{TXT, PDF, IMAGE}

// extToFormat maps normalized file extensions to media types. Used when an
// upload does not declare its media type explicitly.
var extToFormat = map[string]string{
	"txt":  TXT,
	"md":   TXT,
	"csv":  TXT,
	"log":  TXT,
	"pdf":  PDF,
	"png":  IMAGE,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the media type for a normalized extension, or ""
// if the extension is not recognized.
func MapExtToFormat(ext string) string {
	return extToFormat[NormalizeExt(ext)]
}

// IsMediaType reports whether s is one of the declared media types.
func IsMediaType(s string) bool {
	switch s {
	case TXT, PDF, IMAGE:
		return true
	}
	return false
}
