// Package imagehash provides the content and perceptual hashes used for
// duplicate detection, plus the vector and geometry similarity helpers shared
// by face matching.
package imagehash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"math"
	"math/bits"

	"github.com/disintegration/imaging"

	"darkroom/internal/media"
)

const hashSize = 8

// ContentHash returns the SHA-256 hex digest of the reader's bytes.
func ContentHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Perceptual computes an 8x8 average hash. The image is shrunk to a grayscale
// thumbnail and each pixel contributes one bit: set when brighter than the
// thumbnail mean. Row-major, most significant bit first.
func Perceptual(img image.Image) (uint64, error) {
	if img == nil {
		return 0, fmt.Errorf("nil image")
	}
	thumb := imaging.Grayscale(imaging.Resize(img, hashSize, hashSize, imaging.Lanczos))

	var pixels [hashSize * hashSize]uint32
	var sum uint64
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			r, _, _, _ := thumb.At(x, y).RGBA()
			pixels[y*hashSize+x] = r
			sum += uint64(r)
		}
	}
	mean := uint32(sum / (hashSize * hashSize))

	var hash uint64
	for i, p := range pixels {
		if p > mean {
			hash |= 1 << uint(63-i)
		}
	}
	return hash, nil
}

// Similarity maps the hamming distance between two perceptual hashes onto
// [0,1], where 1 means identical.
func Similarity(a, b uint64) float64 {
	return 1 - float64(bits.OnesCount64(a^b))/64
}

// Cosine computes cosine similarity between two normalized embeddings,
// clamped to [-1,1]. Mismatched lengths score zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return math.Min(1.0, math.Max(-1.0, dot))
}

// IoU computes the intersection-over-union of two bounding boxes.
func IoU(a, b media.Rect) float64 {
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.W, b.X+b.W)
	y2 := math.Min(a.Y+a.H, b.Y+b.H)

	intersection := math.Max(0, x2-x1) * math.Max(0, y2-y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
