package extract

import (
	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/core/imaging"
)

// Config carries the limits and tuning knobs shared by the strategies.
// Zero values fall back to the defaults below.
type Config struct {
	MaxFileSize  int64
	MaxImageSize int64

	PageBatchSize        int // pages parsed concurrently per batch, default 8
	ScannedCharThreshold int // a page with more trimmed chars than this counts as digital, default 20
	MaxOCRDocumentPages  int // scanned documents above this are not OCR'd, default 50
	MaxOCRPages          int // pages actually OCR'd, default 10

	OCRDPI     int // default 300
	PreviewDPI int // default 100

	Image imaging.Options
}

func (c Config) WithDefaults() Config {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = constants.MaxFileSize
	}
	if c.MaxImageSize <= 0 {
		c.MaxImageSize = constants.MaxImageSize
	}
	if c.PageBatchSize <= 0 {
		c.PageBatchSize = 8
	}
	if c.ScannedCharThreshold <= 0 {
		c.ScannedCharThreshold = 20
	}
	if c.MaxOCRDocumentPages <= 0 {
		c.MaxOCRDocumentPages = 50
	}
	if c.MaxOCRPages <= 0 {
		c.MaxOCRPages = 10
	}
	if c.OCRDPI <= 0 {
		c.OCRDPI = 300
	}
	if c.PreviewDPI <= 0 {
		c.PreviewDPI = 100
	}
	return c
}

// claims reports whether either the extension or the MIME type belongs to fam.
// A name with an extension outside the accepted list is never claimed.
func claims(f *File, fam constants.Family) bool {
	byExt := constants.MapExtToFamily(f.Ext())
	if byExt == "" && f.Ext() != "" {
		return false
	}
	return byExt == fam || constants.MapMIMEToFamily(f.MIMEType) == fam
}
