package services

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func encodeSolid(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding: %v", err)
	}
	return buf.Bytes()
}

func encodeGradient(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), uint8((x + y) * 2), 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding: %v", err)
	}
	return buf.Bytes()
}

func TestFrameDeduperFlagsIdenticalFrames(t *testing.T) {
	d := NewFrameDeduper(8)
	black := encodeSolid(t, color.RGBA{0, 0, 0, 255})

	if d.NearPrevious(black) {
		t.Error("first frame has no previous, cannot be a duplicate")
	}
	if !d.NearPrevious(black) {
		t.Error("identical frame should be flagged as near-duplicate")
	}
}

func TestFrameDeduperPassesDistinctFrames(t *testing.T) {
	d := NewFrameDeduper(8)

	if d.NearPrevious(encodeSolid(t, color.RGBA{0, 0, 0, 255})) {
		t.Error("first frame cannot be a duplicate")
	}
	if d.NearPrevious(encodeGradient(t)) {
		t.Error("structurally different frame should not be flagged")
	}
}

func TestFrameDeduperIgnoresUndecodable(t *testing.T) {
	d := NewFrameDeduper(8)
	black := encodeSolid(t, color.RGBA{0, 0, 0, 255})

	d.NearPrevious(black)
	if d.NearPrevious([]byte("not a jpeg")) {
		t.Error("undecodable frame cannot be a duplicate")
	}
	// The reference hash survives the garbage frame.
	if !d.NearPrevious(black) {
		t.Error("reference hash should still match the earlier frame")
	}
}

func TestFrameDeduperReset(t *testing.T) {
	d := NewFrameDeduper(8)
	black := encodeSolid(t, color.RGBA{0, 0, 0, 255})

	d.NearPrevious(black)
	d.Reset()
	if d.NearPrevious(black) {
		t.Error("after reset the next frame has no previous")
	}
}
