package services

import (
	"bytes"
	"image"
	_ "image/jpeg"

	"github.com/corona10/goimagehash"
)

// FrameDeduper flags frames that are perceptual near-duplicates of the
// previously seen frame using pHash. It never suppresses a write;
// skip-if-exists on the frame store stays the only cache mechanism. It
// only feeds the near-duplicate counter so an operator can spot windows
// full of identical (usually pitch-black) frames.
type FrameDeduper struct {
	threshold int
	prev      *goimagehash.ImageHash
}

func NewFrameDeduper(threshold int) *FrameDeduper {
	return &FrameDeduper{threshold: threshold}
}

// NearPrevious reports whether data is a near-duplicate of the last frame
// passed in, and remembers data's hash for the next call. Undecodable
// frames are not duplicates and do not update the reference hash.
func (d *FrameDeduper) NearPrevious(data []byte) bool {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return false
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}

	prev := d.prev
	d.prev = hash

	if prev == nil {
		return false
	}
	dist, err := hash.Distance(prev)
	if err != nil {
		return false
	}
	return dist < d.threshold
}

// Reset clears the reference hash, e.g. between windows.
func (d *FrameDeduper) Reset() {
	d.prev = nil
}
