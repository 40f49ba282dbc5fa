// Package imaging prepares raster images for text recognition and builds
// the preview payloads attached to extraction results.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 2500
	DefaultThreshold    = 128
)

type Options struct {
	MaxDimension int   // longest side after scaling; 0 -> DefaultMaxDimension
	Threshold    uint8 // luminance above this becomes white; 0 -> DefaultThreshold
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	return o
}

// Decode decodes any registered format (png, jpeg, gif, bmp, webp).
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Preprocess bounds the longest side, converts to grayscale and binarizes.
func Preprocess(img image.Image, opts Options) *image.Gray {
	opts = opts.withDefaults()
	scaled := Bound(img, opts.MaxDimension)
	return Binarize(Grayscale(scaled), opts.Threshold)
}

// Bound scales img down so neither side exceeds max, keeping aspect ratio.
// Images already within bounds are returned unchanged.
func Bound(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if max <= 0 || (w <= max && h <= max) {
		return img
	}
	var nw, nh int
	if w >= h {
		nw = max
		nh = int(float64(h) * float64(max) / float64(w))
	} else {
		nh = max
		nw = int(float64(w) * float64(max) / float64(h))
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Binarize maps luminance > threshold to white and everything else to black.
func Binarize(g *image.Gray, threshold uint8) *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, v := range g.Pix {
		if v > threshold {
			out.Pix[i] = 0xff
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// PrepareForOCR decodes, preprocesses and re-encodes an image as PNG.
func PrepareForOCR(data []byte, opts Options) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodePNG(Preprocess(img, opts))
}

// DataURL renders data as a data:<mime>;base64 URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
