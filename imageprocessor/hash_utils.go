package imageprocessor

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"trianglefinder/types"

	"github.com/steakknife/hamming"
)

var (
	// ErrLengthMismatch is returned when comparing hashes of different widths
	ErrLengthMismatch = errors.New("hash length mismatch")
	// ErrInvalidHex is returned for hex strings that cannot encode a hash
	ErrInvalidHex = errors.New("invalid hash hex string")
)

// FragmentHash is a fixed width fingerprint of one normalized fragment
type FragmentHash struct {
	Bits  []bool
	Shape [3]types.Keypoint
}

// packBits groups bits into bytes, most significant bit first, zero padding the last byte
func packBits(bits []bool) []byte {
	var hashBytes []byte
	var currentByte byte
	var bitCount uint

	for _, bit := range bits {
		currentByte = currentByte << 1
		if bit {
			currentByte |= 1
		}
		bitCount++

		if bitCount == 8 {
			hashBytes = append(hashBytes, currentByte)
			currentByte = 0
			bitCount = 0
		}
	}

	// Handle any remaining bits
	if bitCount > 0 {
		currentByte = currentByte << (8 - bitCount)
		hashBytes = append(hashBytes, currentByte)
	}

	return hashBytes
}

func unpackBits(data []byte) []bool {
	bits := make([]bool, 0, len(data)*8)
	for _, b := range data {
		for shift := 7; shift >= 0; shift-- {
			bits = append(bits, (b>>uint(shift))&1 == 1)
		}
	}
	return bits
}

// Hex returns the lowercase hex encoding used as the index key
func (h FragmentHash) Hex() string {
	return EncodeHex(h.Bits)
}

// EncodeHex encodes a bit vector as lowercase hex, two digits per byte
func EncodeHex(bits []bool) string {
	return hex.EncodeToString(packBits(bits))
}

// DecodeHex is the inverse of EncodeHex for vectors whose length is a multiple of 8
func DecodeHex(s string) ([]bool, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrInvalidHex, len(s))
	}
	if s != strings.ToLower(s) {
		return nil, fmt.Errorf("%w: %q is not lowercase", ErrInvalidHex, s)
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return unpackBits(data), nil
}

// ParseHex rebuilds a hash from its hex form. bitWidth, when positive, must
// match the decoded length.
func ParseHex(s string, bitWidth int, shape [3]types.Keypoint) (FragmentHash, error) {
	bits, err := DecodeHex(s)
	if err != nil {
		return FragmentHash{}, err
	}
	if bitWidth > 0 && len(bits) != bitWidth {
		return FragmentHash{}, fmt.Errorf("%w: %d bits, expected %d", ErrInvalidHex, len(bits), bitWidth)
	}
	return FragmentHash{Bits: bits, Shape: shape}, nil
}

// HammingDistance counts differing bit positions between two equal width hashes
func HammingDistance(a, b FragmentHash) (int, error) {
	if len(a.Bits) != len(b.Bits) {
		return 0, fmt.Errorf("%w: %d vs %d bits", ErrLengthMismatch, len(a.Bits), len(b.Bits))
	}
	pa, pb := packBits(a.Bits), packBits(b.Bits)

	dist := 0
	for i := range pa {
		dist += hamming.CountBitsByte(pa[i] ^ pb[i])
	}
	return dist, nil
}

// Equal reports whether two hashes carry the same bits
func (h FragmentHash) Equal(other FragmentHash) bool {
	if len(h.Bits) != len(other.Bits) {
		return false
	}
	for i := range h.Bits {
		if h.Bits[i] != other.Bits[i] {
			return false
		}
	}
	return true
}

// Hasher turns normalized fragments into fragment hashes
type Hasher struct {
	Primitive BitHasher
}

// NewHasher wraps a bit generating primitive
func NewHasher(primitive BitHasher) *Hasher {
	return &Hasher{Primitive: primitive}
}

// Hash fingerprints one fragment
func (h *Hasher) Hash(frag Fragment) (FragmentHash, error) {
	if frag.Image.Empty() {
		return FragmentHash{}, fmt.Errorf("cannot compute hash for empty image")
	}

	bits, err := h.Primitive.ComputeBits(frag.Image)
	if err != nil {
		return FragmentHash{}, err
	}
	if want := h.Primitive.Bits(); len(bits) != want {
		return FragmentHash{}, fmt.Errorf("%w: primitive returned %d bits, expected %d", ErrLengthMismatch, len(bits), want)
	}

	return FragmentHash{Bits: bits, Shape: frag.Shape}, nil
}
