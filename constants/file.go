package constants

import "strings"

// AllowedContentTypes holds the content types the intake step accepts.
var AllowedContentTypes = map[string]struct{}{
	"application/pdf": {},
}

// AllowedExtensions holds the file extensions the intake step accepts.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// MaxUploadMBDefault is advisory; the extraction collaborator enforces its own cap.
const MaxUploadMBDefault = 50

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
