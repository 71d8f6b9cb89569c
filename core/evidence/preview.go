package evidence

import (
	"bytes"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"cyberincident/core/utils"
)

func init() {
	image.RegisterFormat("bmp", "BM", bmp.Decode, bmp.DecodeConfig)
	image.RegisterFormat("webp", "RIFF????WEBP", webp.Decode, webp.DecodeConfig)
}

// Previewer produces the bounded inline representation for image
// evidence. The original bytes always go to storage untouched; the
// preview only feeds the inline view.
type Previewer struct {
	maxWidth  int
	maxHeight int
	quality   int
	logger    *utils.Logger
}

func NewPreviewer(maxWidth, maxHeight, quality int, logger *utils.Logger) *Previewer {
	if maxWidth <= 0 {
		maxWidth = 800
	}
	if maxHeight <= 0 {
		maxHeight = 600
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &Previewer{maxWidth: maxWidth, maxHeight: maxHeight, quality: quality, logger: logger}
}

// BuildPreview returns the preview bytes and their content type. When
// the data does not decode as an image, or already fits the bounds,
// the original bytes come back unchanged with an empty content type so
// the caller knows no re-encode happened. Never returns an error: a
// failed preview must not block the upload.
func (p *Previewer) BuildPreview(data []byte) ([]byte, string) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		p.logger.Warnf("preview decode failed (%v), keeping original bytes", err)
		return data, ""
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= p.maxWidth && h <= p.maxHeight {
		return data, ""
	}
	dstW, dstH := fitWithin(w, h, p.maxWidth, p.maxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.quality}); err != nil {
		p.logger.Warnf("preview encode failed (%v, source %s), keeping original bytes", err, format)
		return data, ""
	}
	return buf.Bytes(), "image/jpeg"
}

// fitWithin scales (w,h) down to the bounding box preserving aspect
// ratio. Inputs are known to exceed at least one bound.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	rw := float64(maxW) / float64(w)
	rh := float64(maxH) / float64(h)
	r := rw
	if rh < r {
		r = rh
	}
	dw := int(float64(w) * r)
	dh := int(float64(h) * r)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	return dw, dh
}
