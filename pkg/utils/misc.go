package utils

import (
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// HashBytes returns the content address of data: a CIDv1 (raw codec) over a
// sha2-256 multihash, rendered in base32 so it is safe to embed in filenames.
func HashBytes(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

// HashString hashes s after trimming surrounding whitespace, so copies that
// differ only by a trailing newline dedup to the same item.
func HashString(s string) string {
	h, err := HashBytes([]byte(strings.TrimSpace(s)))
	if err != nil {
		// sha2-256 is always registered; an error here means a broken build.
		panic(err)
	}
	return h
}

// ValidHash reports whether h parses as a content address produced by HashBytes.
func ValidHash(h string) bool {
	c, err := cid.Decode(h)
	if err != nil {
		return false
	}
	dec, err := multihash.Decode(c.Hash())
	return err == nil && dec.Code == multihash.SHA2_256
}
