package constants

import "strings"

// AllowedExtensions holds the file extensions accepted by report uploads.
// Reports arrive as scanned PDFs only; images go through the PDF path upstream.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDFFilename reports whether name carries a .pdf extension.
func IsPDFFilename(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	_, ok := AllowedExtensions[NormalizeExt(name[i:])]
	return ok
}
