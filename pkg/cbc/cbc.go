// Package cbc encrypts and decrypts payloads with AES-256 in CBC mode, using PKCS#7 padding.
//
// CBC has no authentication tag.
// A wrong key usually shows up as invalid padding and ErrDecryption, but it may also produce valid padding and return garbage.
// Tampered ciphertext is not reliably detected either.
package cbc

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"errors"
	"fmt"
)

const (
	BlockSize = aes.BlockSize
	KeySize   = 32
	IVSize    = aes.BlockSize
)

var (
	// ErrDecryption is deliberately opaque, it doesn't say whether the key, IV, or ciphertext was at fault.
	ErrDecryption = errors.New("unable to decrypt data")
	ErrKeySize    = fmt.Errorf("key must be %d bytes", KeySize)
	ErrIVSize     = fmt.Errorf("iv must be %d bytes", IVSize)
)

// Engine is a stateless handle to the package level Encrypt and Decrypt functions.
type Engine struct{}

func (Engine) Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	return Encrypt(plaintext, key, iv)
}

func (Engine) Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	return Decrypt(ciphertext, key, iv)
}

func newBlock(key, iv []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrKeySize, len(key))
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("%w, got %d", ErrIVSize, len(iv))
	}
	return aes.NewCipher(key)
}

// Encrypt pads the plaintext and encrypts it.
// The output is always a non-zero multiple of BlockSize, even for empty plaintext.
func Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	out := Pad(plaintext)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, out)
	return out, nil
}

// Decrypt decrypts the ciphertext and strips its padding.
func Decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := newBlock(key, iv)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, ErrDecryption
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return Unpad(out)
}

// Pad returns a copy of data with PKCS#7 padding to a multiple of BlockSize.
func Pad(data []byte) []byte {
	n := BlockSize - len(data)%BlockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// Unpad validates and removes PKCS#7 padding, returning ErrDecryption if it's malformed.
func Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, ErrDecryption
	}
	n := int(data[len(data)-1])
	if n == 0 || n > BlockSize {
		return nil, ErrDecryption
	}
	valid := 1
	for _, b := range data[len(data)-n:] {
		valid &= subtle.ConstantTimeByteEq(b, byte(n))
	}
	if valid != 1 {
		return nil, ErrDecryption
	}
	return data[:len(data)-n], nil
}
