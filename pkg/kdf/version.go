package kdf

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/saylorsolutions/cryptblock/pkg/argon2d"
)

// Version identifies the key derivation and format rules that apply to a block.
type Version string

const (
	V1 Version = "1"
	V2 Version = "2"

	// Legacy is the version assumed for blocks written before versions were recorded.
	Legacy = V1
	// Latest is the version used for new blocks by default.
	Latest = V2
)

const (
	KeySize = 32

	Argon2Passes      uint32 = 10
	Argon2MemoryKiB   uint32 = 64 * 1024
	Argon2Parallelism uint8  = 2
)

var (
	ErrUnsupportedVersion = errors.New("unsupported block version")
	ErrInvalidKey         = errors.New("derived key has an invalid size")
)

// UnsupportedVersionError reports a version tag with no registered Deriver.
type UnsupportedVersionError struct {
	Version Version
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("%s: '%s'", ErrUnsupportedVersion, string(e.Version))
}

func (e *UnsupportedVersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion
}

// Deriver deterministically turns a passphrase and salt into a key.
type Deriver interface {
	DeriveKey(passphrase, salt []byte) ([]byte, error)
}

// DeriverFunc adapts a function to the Deriver interface.
type DeriverFunc func(passphrase, salt []byte) ([]byte, error)

func (f DeriverFunc) DeriveKey(passphrase, salt []byte) ([]byte, error) {
	return f(passphrase, salt)
}

// SHA256Deriver is the version 1 strategy.
type SHA256Deriver struct{}

func (SHA256Deriver) DeriveKey(passphrase, salt []byte) ([]byte, error) {
	h := sha256.New()
	h.Write(passphrase)
	h.Write(salt)
	return h.Sum(nil), nil
}

// Argon2dDeriver derives keys with Argon2d using its cost parameters.
type Argon2dDeriver struct {
	Passes      uint32
	MemoryKiB   uint32
	Parallelism uint8
}

func (d Argon2dDeriver) DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if d.Passes < 1 || d.Parallelism < 1 {
		return nil, fmt.Errorf("invalid Argon2d parameters: passes=%d, parallelism=%d", d.Passes, d.Parallelism)
	}
	return argon2d.Key(passphrase, salt, d.Passes, d.MemoryKiB, d.Parallelism, KeySize), nil
}

// Builtin returns the Deriver defined for a version by the block format.
// Adding a version means adding a case here.
func Builtin(v Version) (Deriver, error) {
	switch v {
	case V1:
		return SHA256Deriver{}, nil
	case V2:
		return Argon2dDeriver{
			Passes:      Argon2Passes,
			MemoryKiB:   Argon2MemoryKiB,
			Parallelism: Argon2Parallelism,
		}, nil
	default:
		return nil, &UnsupportedVersionError{Version: v}
	}
}

// BuiltinVersions lists every version Builtin knows, oldest first.
func BuiltinVersions() []Version {
	return []Version{V1, V2}
}
