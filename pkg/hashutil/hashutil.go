package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

type HashAlgo string

const (
	HashAlgoSHA256 = "sha256"
	HashAlgoBLAKE3 = "blake3"
)

// HashBytes returns the digest of data as a hex string using the specified
// algorithm. Supported algorithms: "sha256" and "blake3". The digest is
// fixed-width (64 hex characters for both), which keeps derived cache
// filenames uniform.
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	switch algo {
	case HashAlgoSHA256:
		return hashBytesSha256(data), nil
	case HashAlgoBLAKE3:
		return hashBytesBlake3(data), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// ValidAlgo reports whether algo names a supported hash algorithm.
func ValidAlgo(algo HashAlgo) bool {
	switch algo {
	case HashAlgoSHA256, HashAlgoBLAKE3:
		return true
	default:
		return false
	}
}

func hashBytesSha256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func hashBytesBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
