package cache

import (
	"crypto/md5"
	"encoding/hex"
)

// Key returns the cache key for a raw image URL: the lowercase hex MD5 of the
// URL string. MD5 is used as a stable fingerprint, not for security, and
// keeps keys compatible with existing metadata files.
func Key(rawURL string) string {
	sum := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// shortKey is the key prefix used in log fields.
func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
