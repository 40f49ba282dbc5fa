package ocr

import (
	"strconv"
	"strings"
)

// MeanTSVConfidence parses tesseract TSV output and returns the mean word
// confidence in 0..100. ok is false when no word carried a confidence.
func MeanTSVConfidence(tsv []byte) (mean float64, ok bool) {
	lines := strings.Split(string(tsv), "\n")
	var sum float64
	var n int
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue
		} // skip header
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		// conf is the 11th column; text is last
		confStr := strings.TrimSpace(cols[10])
		if confStr == "" || confStr == "-1" {
			continue
		}
		if strings.TrimSpace(cols[11]) == "" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
