package internal

import "strings"

const (
	BlockExt     = ".json"
	DecryptedExt = ".out"
)

// DefaultOutputPath chooses where to write when only an input path is given.
// Encrypting appends BlockExt. Decrypting strips BlockExt, or appends DecryptedExt if it's not there.
func DefaultOutputPath(input string, decrypt bool) string {
	if !decrypt {
		return input + BlockExt
	}
	if trimmed, ok := strings.CutSuffix(input, BlockExt); ok && len(trimmed) > 0 && !strings.HasSuffix(trimmed, "/") {
		return trimmed
	}
	return input + DecryptedExt
}
