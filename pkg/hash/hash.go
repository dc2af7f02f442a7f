package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// IPHashIterations is the stretch factor applied to salted session IP hashes.
const IPHashIterations = 5000

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// HashIP hashes an IP address with a salt. Empty IPs hash to "".
func HashIP(ip, salt string) string {
	if ip == "" {
		return ""
	}
	return IteratedSHA256(salt+ip, IPHashIterations)
}

// IPHasher binds a salt for use as a session IP hasher.
func IPHasher(salt string) func(string) string {
	return func(ip string) string { return HashIP(ip, salt) }
}

// Short returns a 12-character prefix of SHA256(input), for log correlation.
func Short(input string) string {
	return SHA256Hex(input)[:12]
}
