package constants

import (
	"path/filepath"
	"strings"
)

// Family groups file types that share an extraction strategy.
type Family string

const (
	PDF         Family = "PDF"
	DOCX        Family = "DOCX"
	SPREADSHEET Family = "SPREADSHEET"
	TEXT        Family = "TEXT"
	IMAGE       Family = "IMAGE"
)

// Size ceilings enforced before and during extraction.
const (
	MaxFileSize  int64 = 50 << 20
	MaxImageSize int64 = 20 << 20
)

// Source kinds reported on extraction results.
const (
	SourcePDFDigital = "PDF (Digital)"
	SourcePDFScanned = "PDF (Scanned)"
	SourceDOCX       = "DOCX"
	SourceImage      = "Image"
	SourceText       = "Text"
	SourceCSV        = "CSV"
	SourceExcel      = "Excel"
)

// MIME types recognised per family.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEXLS  = "application/vnd.ms-excel"
	MIMECSV  = "text/csv"
)

var extFamilies = map[string]Family{
	"pdf":      PDF,
	"docx":     DOCX,
	"xlsx":     SPREADSHEET,
	"xls":      SPREADSHEET,
	"txt":      TEXT,
	"md":       TEXT,
	"markdown": TEXT,
	"csv":      TEXT,
	"jpg":      IMAGE,
	"jpeg":     IMAGE,
	"png":      IMAGE,
	"gif":      IMAGE,
	"bmp":      IMAGE,
	"webp":     IMAGE,
}

var extMIME = map[string]string{
	"pdf":      MIMEPDF,
	"docx":     MIMEDOCX,
	"xlsx":     MIMEXLSX,
	"xls":      MIMEXLS,
	"txt":      "text/plain",
	"md":       "text/markdown",
	"markdown": "text/markdown",
	"csv":      MIMECSV,
	"jpg":      "image/jpeg",
	"jpeg":     "image/jpeg",
	"png":      "image/png",
	"gif":      "image/gif",
	"bmp":      "image/bmp",
	"webp":     "image/webp",
}

// AllowedExtensions holds every extension the extractor accepts.
var AllowedExtensions = func() map[string]struct{} {
	out := make(map[string]struct{}, len(extFamilies))
	for ext := range extFamilies {
		out[ext] = struct{}{}
	}
	return out
}()

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ExtOf returns the normalized extension of a file name.
func ExtOf(name string) string {
	return NormalizeExt(filepath.Ext(name))
}

// MapExtToFamily returns the family for an extension, or "" when unsupported.
func MapExtToFamily(ext string) Family {
	return extFamilies[NormalizeExt(ext)]
}

// MIMEForExt returns the canonical MIME type for an accepted extension.
func MIMEForExt(ext string) (string, bool) {
	m, ok := extMIME[NormalizeExt(ext)]
	return m, ok
}

// NormalizeMIME strips parameters and lowercases a MIME type.
func NormalizeMIME(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}

var mimeFamilies = func() map[string]Family {
	out := make(map[string]Family, len(extMIME))
	for ext, m := range extMIME {
		out[m] = extFamilies[ext]
	}
	out["image/jpg"] = IMAGE
	out["image/x-ms-bmp"] = IMAGE
	out["application/csv"] = TEXT
	return out
}()

// MapMIMEToFamily returns the family for a MIME type, or "" when unsupported.
func MapMIMEToFamily(m string) Family {
	return mimeFamilies[NormalizeMIME(m)]
}
