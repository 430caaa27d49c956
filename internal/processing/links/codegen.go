package links

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"net/url"
	"strings"
	"time"
)

const (
	base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	DefaultCodeLength = 12
	maxCodeLength     = sha256.Size
)

// TimeDigestGenerator derives short codes from a digest of the destination
// URL, the current time in nanoseconds and a random salt. It does not check
// uniqueness; the store's conditional create does.
type TimeDigestGenerator struct {
	length int
	now    func() time.Time
	random io.Reader
}

func NewTimeDigestGenerator(length int) *TimeDigestGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	if length > maxCodeLength {
		length = maxCodeLength
	}

	return &TimeDigestGenerator{
		length: length,
		now:    time.Now,
		random: rand.Reader,
	}
}

func (g *TimeDigestGenerator) Generate(longURL string) (string, error) {
	normalized, err := ValidateLongURL(longURL)
	if err != nil {
		return "", err
	}

	var stamp [8]byte
	binary.BigEndian.PutUint64(stamp[:], uint64(g.now().UnixNano()))

	var salt [8]byte
	if _, err := io.ReadFull(g.random, salt[:]); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write(stamp[:])
	h.Write(salt[:])
	sum := h.Sum(nil)

	// Read the digest as one number and take its base62 digits; reducing each
	// byte mod 62 would favour the first characters of the alphabet.
	n := new(big.Int).SetBytes(sum)
	base := big.NewInt(int64(len(base62Alphabet)))
	digit := new(big.Int)

	out := make([]byte, g.length)
	for i := range out {
		n.DivMod(n, base, digit)
		out[i] = base62Alphabet[digit.Int64()]
	}

	return string(out), nil
}

// ValidateLongURL accepts absolute URLs with a scheme and either a host or an
// opaque part (mailto:, tel:) and returns the trimmed input.
func ValidateLongURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidInput)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("%w: url %q has no scheme", ErrInvalidInput, raw)
	}
	if u.Host == "" && u.Opaque == "" {
		return "", fmt.Errorf("%w: url %q is not absolute", ErrInvalidInput, raw)
	}

	return raw, nil
}
