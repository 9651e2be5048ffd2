package blocklock

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/saylorsolutions/cryptblock/pkg/cbc"
	"github.com/saylorsolutions/cryptblock/pkg/envelope"
	"github.com/saylorsolutions/cryptblock/pkg/kdf"
)

var (
	// ErrIntegrity means a freshly encrypted block didn't decrypt back to its plaintext.
	// This points to a defect, not a user error.
	ErrIntegrity = errors.New("encrypted block failed verification")
	ErrNilBlock  = errors.New("nil block")
)

// Cipher is the symmetric engine used to encrypt and decrypt block payloads.
type Cipher interface {
	Encrypt(plaintext, key, iv []byte) ([]byte, error)
	Decrypt(ciphertext, key, iv []byte) ([]byte, error)
}

// Advisory is a non-fatal notice that a block was written with an older version.
type Advisory struct {
	Version kdf.Version
	Latest  kdf.Version
}

func (a Advisory) String() string {
	return fmt.Sprintf("block uses version '%s', the latest version is '%s'; consider encrypting the data again", a.Version, a.Latest)
}

// Locker produces and opens blocks. It holds no per-call state and may be shared between goroutines.
type Locker struct {
	registry *kdf.Registry
	version  kdf.Version
	random   io.Reader
	cipher   Cipher
	advise   func(Advisory)
}

type LockerOpt = func(*Locker) error

// WithRegistry sets the key derivation registry. By default, kdf.NewRegistry is used with no options.
func WithRegistry(reg *kdf.Registry) LockerOpt {
	return func(l *Locker) error {
		if reg == nil {
			return errors.New("nil registry")
		}
		l.registry = reg
		return nil
	}
}

// WithVersion sets the version used for new blocks. It defaults to the registry's latest version.
func WithVersion(v kdf.Version) LockerOpt {
	return func(l *Locker) error {
		l.version = v
		return nil
	}
}

// WithRandom sets the source of IVs and salts. It defaults to crypto/rand.Reader.
func WithRandom(r io.Reader) LockerOpt {
	return func(l *Locker) error {
		if r == nil {
			return errors.New("nil random source")
		}
		l.random = r
		return nil
	}
}

// WithCipher replaces the AES-256-CBC engine.
func WithCipher(c Cipher) LockerOpt {
	return func(l *Locker) error {
		if c == nil {
			return errors.New("nil cipher")
		}
		l.cipher = c
		return nil
	}
}

// WithAdvisor sets a function to receive advisories. By default they're discarded.
func WithAdvisor(fn func(Advisory)) LockerOpt {
	return func(l *Locker) error {
		if fn == nil {
			fn = func(Advisory) {}
		}
		l.advise = fn
		return nil
	}
}

// NewLocker creates a Locker with the given options.
func NewLocker(opts ...LockerOpt) (*Locker, error) {
	l := &Locker{
		random: rand.Reader,
		cipher: cbc.Engine{},
		advise: func(Advisory) {},
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.registry == nil {
		reg, err := kdf.NewRegistry()
		if err != nil {
			return nil, err
		}
		l.registry = reg
	}
	if len(l.version) == 0 {
		l.version = l.registry.Latest()
	}
	if !l.registry.Supports(l.version) {
		return nil, &kdf.UnsupportedVersionError{Version: l.version}
	}
	return l, nil
}

// Version returns the version used for new blocks.
func (l *Locker) Version() kdf.Version {
	return l.version
}

// Registry returns the key derivation registry.
func (l *Locker) Registry() *kdf.Registry {
	return l.registry
}

// Lock encrypts plaintext into a new Block, and verifies that the Block decrypts back to the same plaintext.
func (l *Locker) Lock(ctx context.Context, plaintext, passphrase []byte) (*envelope.Block, error) {
	iv, err := l.randomBytes(envelope.IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}
	salt, err := l.randomBytes(envelope.SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	key, err := l.deriveKey(ctx, l.version, passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	ciphertext, err := l.cipher.Encrypt(plaintext, key, iv)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt data: %w", err)
	}
	verified, err := l.cipher.Decrypt(ciphertext, key, iv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	if !bytes.Equal(plaintext, verified) {
		return nil, fmt.Errorf("%w: decrypted data doesn't match the original", ErrIntegrity)
	}
	return envelope.New(l.version, iv, salt, ciphertext)
}

// LockBytes is like Lock, but returns the encoded form of the Block.
func (l *Locker) LockBytes(ctx context.Context, plaintext, passphrase []byte) ([]byte, error) {
	b, err := l.Lock(ctx, plaintext, passphrase)
	if err != nil {
		return nil, err
	}
	return envelope.Encode(b)
}

// Unlock decrypts a Block using the key derivation rules of its version.
func (l *Locker) Unlock(ctx context.Context, b *envelope.Block, passphrase []byte) ([]byte, error) {
	if b == nil {
		return nil, ErrNilBlock
	}
	version := b.Version()
	if !l.registry.Supports(version) {
		return nil, &kdf.UnsupportedVersionError{Version: version}
	}
	if latest := l.registry.Latest(); version != latest {
		l.advise(Advisory{Version: version, Latest: latest})
	}
	key, err := l.deriveKey(ctx, version, passphrase, b.Salt())
	if err != nil {
		return nil, err
	}
	defer zero(key)
	return l.cipher.Decrypt(b.Ciphertext(), key, b.IV())
}

// UnlockBytes decodes and decrypts the encoded form of a Block.
// Malformed data fails with an *envelope.ValidationError before any key is derived.
func (l *Locker) UnlockBytes(ctx context.Context, data, passphrase []byte) ([]byte, error) {
	b, err := envelope.Decode(data)
	if err != nil {
		return nil, err
	}
	return l.Unlock(ctx, b, passphrase)
}

func (l *Locker) randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(l.random, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

type deriveResult struct {
	key []byte
	err error
}

// deriveKey runs key derivation in its own goroutine so a done context can abandon it.
func (l *Locker) deriveKey(ctx context.Context, v kdf.Version, passphrase, salt []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make(chan deriveResult, 1)
	go func() {
		key, err := l.registry.Derive(v, passphrase, salt)
		result <- deriveResult{key: key, err: err}
	}()
	select {
	case <-ctx.Done():
		go func() {
			if res := <-result; res.err == nil {
				zero(res.key)
			}
		}()
		return nil, ctx.Err()
	case res := <-result:
		return res.key, res.err
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
