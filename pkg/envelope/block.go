package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/saylorsolutions/cryptblock/pkg/kdf"
)

const (
	IVSize   = 16
	SaltSize = 16
)

const (
	fieldVersion = "v"
	fieldIV      = "iv"
	fieldSalt    = "salt"
	fieldData    = "data"
)

// Block is an encrypted payload along with everything needed to decrypt it except the passphrase.
// A Block can't be changed after it's created, accessors return copies.
type Block struct {
	version    kdf.Version
	iv         []byte
	salt       []byte
	ciphertext []byte
}

// New validates and copies the given parts into a Block.
func New(version kdf.Version, iv, salt, ciphertext []byte) (*Block, error) {
	if len(version) == 0 {
		return nil, invalidField(fieldVersion, "version is required", nil)
	}
	if len(iv) != IVSize {
		return nil, invalidField(fieldIV, fmt.Sprintf("must be %d bytes, got %d", IVSize, len(iv)), nil)
	}
	if len(salt) != SaltSize {
		return nil, invalidField(fieldSalt, fmt.Sprintf("must be %d bytes, got %d", SaltSize, len(salt)), nil)
	}
	if len(ciphertext) == 0 {
		return nil, invalidField(fieldData, "ciphertext is empty", nil)
	}
	return &Block{
		version:    version,
		iv:         bytes.Clone(iv),
		salt:       bytes.Clone(salt),
		ciphertext: bytes.Clone(ciphertext),
	}, nil
}

func (b *Block) Version() kdf.Version {
	return b.version
}

func (b *Block) IV() []byte {
	return bytes.Clone(b.iv)
}

func (b *Block) Salt() []byte {
	return bytes.Clone(b.salt)
}

func (b *Block) Ciphertext() []byte {
	return bytes.Clone(b.ciphertext)
}

// Equal reports whether both blocks have the same version and contents.
func (b *Block) Equal(other *Block) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.version == other.version &&
		bytes.Equal(b.iv, other.iv) &&
		bytes.Equal(b.salt, other.salt) &&
		bytes.Equal(b.ciphertext, other.ciphertext)
}

// MarshalText returns the encoded form of the Block, see Encode.
func (b *Block) MarshalText() ([]byte, error) {
	return Encode(b)
}

// String returns the encoded form of the Block, or an empty string if it can't be encoded.
func (b *Block) String() string {
	data, err := Encode(b)
	if err != nil {
		return ""
	}
	return string(data)
}

// record is the wire layout of a Block.
// Version is a pointer so a missing field and an explicit null can both be detected as absent.
type record struct {
	Version *string `json:"v,omitempty"`
	IV      string  `json:"iv"`
	Salt    string  `json:"salt"`
	Data    string  `json:"data"`
}

// Encode produces the textual form of a Block. The version is always written.
func Encode(b *Block) ([]byte, error) {
	if b == nil {
		return nil, &ValidationError{Message: "nil block"}
	}
	// Re-validate in case of a zero value Block.
	if _, err := New(b.version, b.iv, b.salt, b.ciphertext); err != nil {
		return nil, err
	}
	v := string(b.version)
	rec := record{
		Version: &v,
		IV:      base64.StdEncoding.EncodeToString(b.iv),
		Salt:    base64.StdEncoding.EncodeToString(b.salt),
		Data:    base64.StdEncoding.EncodeToString(b.ciphertext),
	}
	return json.Marshal(rec)
}

// Decode parses the textual form of a Block without attempting decryption.
// A missing, null, or empty version is read as kdf.Legacy.
func Decode(data []byte) (*Block, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ValidationError{Message: "expected a JSON object"}
	}
	var rec record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, &ValidationError{Message: "unable to parse block", Err: err}
	}

	version := kdf.Legacy
	if rec.Version != nil && len(*rec.Version) > 0 {
		version = kdf.Version(*rec.Version)
	}
	iv, err := decodeField(fieldIV, rec.IV)
	if err != nil {
		return nil, err
	}
	salt, err := decodeField(fieldSalt, rec.Salt)
	if err != nil {
		return nil, err
	}
	ciphertext, err := decodeField(fieldData, rec.Data)
	if err != nil {
		return nil, err
	}
	return New(version, iv, salt, ciphertext)
}

func decodeField(field, value string) ([]byte, error) {
	if len(value) == 0 {
		return nil, invalidField(field, "missing or empty", nil)
	}
	out, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, invalidField(field, "invalid base64", err)
	}
	if len(out) == 0 {
		return nil, invalidField(field, "decodes to zero bytes", nil)
	}
	return out, nil
}

// IsWellFormed reports whether data decodes to a Block.
func IsWellFormed(data []byte) bool {
	_, err := Decode(data)
	return err == nil
}
