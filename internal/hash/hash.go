// Package hash computes content and perceptual hashes for design files.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"os"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// contentChunkSize bounds memory use while hashing arbitrarily large files.
const contentChunkSize = 8192

// Content computes the SHA-256 digest of a file's raw bytes, streaming in
// fixed-size chunks. Returns the lowercase hex digest.
func Content(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, contentChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Perceptual computes a similarity-preserving hash of an image's visual
// content for near-duplicate detection. Returns the hash in its canonical
// string form (e.g. "p:af68c9e1...").
//
// Failure to decode the image is returned as an error; callers treat it as
// non-fatal and proceed without a perceptual hash.
func Perceptual(imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	ph, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("perception hash: %w", err)
	}

	return ph.ToString(), nil
}
