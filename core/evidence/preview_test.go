package evidence

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"cyberincident/core/utils"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestBuildPreviewDownscalesLargeImages(t *testing.T) {
	p := NewPreviewer(100, 80, 80, utils.NewLogger())
	src := pngBytes(t, 400, 200)
	out, contentType := p.BuildPreview(src)
	if contentType != "image/jpeg" {
		t.Fatalf("content type %q, want image/jpeg", contentType)
	}
	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("preview format %s, want jpeg", format)
	}
	b := img.Bounds()
	if b.Dx() > 100 || b.Dy() > 80 {
		t.Fatalf("preview %dx%d exceeds 100x80", b.Dx(), b.Dy())
	}
}

func TestBuildPreviewPreservesAspectRatio(t *testing.T) {
	p := NewPreviewer(100, 100, 80, utils.NewLogger())
	out, _ := p.BuildPreview(pngBytes(t, 400, 200))
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("preview %dx%d, want 100x50", b.Dx(), b.Dy())
	}
}

func TestBuildPreviewPassesThroughSmallImages(t *testing.T) {
	p := NewPreviewer(800, 600, 80, utils.NewLogger())
	src := pngBytes(t, 64, 64)
	out, contentType := p.BuildPreview(src)
	if contentType != "" {
		t.Fatalf("small image re-encoded (content type %q)", contentType)
	}
	if !bytes.Equal(out, src) {
		t.Fatal("small image bytes changed")
	}
}

func TestBuildPreviewKeepsUndecodableBytes(t *testing.T) {
	p := NewPreviewer(800, 600, 80, utils.NewLogger())
	src := []byte("definitely not an image")
	out, contentType := p.BuildPreview(src)
	if contentType != "" {
		t.Fatalf("garbage got a content type %q", contentType)
	}
	if !bytes.Equal(out, src) {
		t.Fatal("garbage bytes changed")
	}
}
