package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/saylorsolutions/cryptblock/pkg/kdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testIV   = bytes.Repeat([]byte{0x01}, IVSize)
	testSalt = bytes.Repeat([]byte{0x02}, SaltSize)
	testData = bytes.Repeat([]byte{0x03}, 32)
)

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func TestNew(t *testing.T) {
	b, err := New(kdf.V2, testIV, testSalt, testData)
	require.NoError(t, err)
	assert.Equal(t, kdf.V2, b.Version())
	assert.Equal(t, testIV, b.IV())
	assert.Equal(t, testSalt, b.Salt())
	assert.Equal(t, testData, b.Ciphertext())
}

func TestNew_CopiesInput(t *testing.T) {
	iv := bytes.Clone(testIV)
	b, err := New(kdf.V2, iv, testSalt, testData)
	require.NoError(t, err)
	iv[0] = 0xff
	assert.Equal(t, testIV, b.IV())

	out := b.IV()
	out[0] = 0xff
	assert.Equal(t, testIV, b.IV(), "Accessors must not expose internal state")
}

func TestNew_Neg(t *testing.T) {
	tests := map[string]struct {
		version    kdf.Version
		iv         []byte
		salt       []byte
		ciphertext []byte
		field      string
	}{
		"Missing version": {"", testIV, testSalt, testData, "v"},
		"Short IV":        {kdf.V2, testIV[:8], testSalt, testData, "iv"},
		"Long salt":       {kdf.V2, testIV, append(bytes.Clone(testSalt), 0), testData, "salt"},
		"Empty data":      {kdf.V2, testIV, testSalt, nil, "data"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			b, err := New(tc.version, tc.iv, tc.salt, tc.ciphertext)
			assert.Nil(t, b)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
			assert.ErrorIs(t, err, ErrInvalidBlock)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	b, err := New(kdf.V2, testIV, testSalt, testData)
	require.NoError(t, err)

	data, err := Encode(b)
	require.NoError(t, err)
	t.Log(string(data))

	var fields map[string]string
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, map[string]string{
		"v":    "2",
		"iv":   b64(testIV),
		"salt": b64(testSalt),
		"data": b64(testData),
	}, fields)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, b.Equal(decoded))
	assert.Equal(t, string(data), b.String())

	text, err := b.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, data, text)
}

func TestEncode_Neg(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ErrInvalidBlock)
	_, err = Encode(&Block{})
	assert.ErrorIs(t, err, ErrInvalidBlock)
	assert.Equal(t, "", (&Block{}).String())
}

func TestDecode_LegacyVersion(t *testing.T) {
	tests := map[string]string{
		"Missing v": fmt.Sprintf(`{"iv":"%s","salt":"%s","data":"%s"}`, b64(testIV), b64(testSalt), b64(testData)),
		"Null v":    fmt.Sprintf(`{"v":null,"iv":"%s","salt":"%s","data":"%s"}`, b64(testIV), b64(testSalt), b64(testData)),
		"Empty v":   fmt.Sprintf(`{"v":"","iv":"%s","salt":"%s","data":"%s"}`, b64(testIV), b64(testSalt), b64(testData)),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			b, err := Decode([]byte(data))
			require.NoError(t, err)
			assert.Equal(t, kdf.Version("1"), b.Version())

			// Re-encoding always records the version.
			out, err := Encode(b)
			require.NoError(t, err)
			assert.Contains(t, string(out), `"v":"1"`)
		})
	}
}

func TestDecode_KeepsUnknownVersion(t *testing.T) {
	data := fmt.Sprintf(`{"v":"99","iv":"%s","salt":"%s","data":"%s"}`, b64(testIV), b64(testSalt), b64(testData))
	b, err := Decode([]byte(data))
	require.NoError(t, err, "Unknown versions are rejected at decrypt time, not by the codec")
	assert.Equal(t, kdf.Version("99"), b.Version())
}

func TestDecode_Whitespace(t *testing.T) {
	data := fmt.Sprintf("\n  {\"v\":\"2\",\"iv\":\"%s\",\"salt\":\"%s\",\"data\":\"%s\"}\n", b64(testIV), b64(testSalt), b64(testData))
	assert.True(t, IsWellFormed([]byte(data)))
}

func TestIsWellFormed(t *testing.T) {
	valid := fmt.Sprintf(`{"v":"2","iv":"%s","salt":"%s","data":"%s"}`, b64(testIV), b64(testSalt), b64(testData))
	assert.True(t, IsWellFormed([]byte(valid)))

	tests := map[string]string{
		"Empty input":        "",
		"Not JSON":           "this is not a block",
		"JSON array":         `["iv","salt","data"]`,
		"JSON null":          "null",
		"JSON string":        `"iv"`,
		"Truncated":          valid[:len(valid)-2],
		"Trailing garbage":   valid + "}",
		"Missing iv":         fmt.Sprintf(`{"v":"2","salt":"%s","data":"%s"}`, b64(testSalt), b64(testData)),
		"Missing salt":       fmt.Sprintf(`{"v":"2","iv":"%s","data":"%s"}`, b64(testIV), b64(testData)),
		"Missing data":       fmt.Sprintf(`{"v":"2","iv":"%s","salt":"%s"}`, b64(testIV), b64(testSalt)),
		"Empty iv":           fmt.Sprintf(`{"v":"2","iv":"","salt":"%s","data":"%s"}`, b64(testSalt), b64(testData)),
		"Empty data":         fmt.Sprintf(`{"v":"2","iv":"%s","salt":"%s","data":""}`, b64(testIV), b64(testSalt)),
		"Null salt":          fmt.Sprintf(`{"v":"2","iv":"%s","salt":null,"data":"%s"}`, b64(testIV), b64(testData)),
		"Numeric iv":         fmt.Sprintf(`{"v":"2","iv":16,"salt":"%s","data":"%s"}`, b64(testSalt), b64(testData)),
		"Numeric version":    fmt.Sprintf(`{"v":2,"iv":"%s","salt":"%s","data":"%s"}`, b64(testIV), b64(testSalt), b64(testData)),
		"Bad base64 data":    fmt.Sprintf(`{"v":"2","iv":"%s","salt":"%s","data":"!!!"}`, b64(testIV), b64(testSalt)),
		"Short iv":           fmt.Sprintf(`{"v":"2","iv":"%s","salt":"%s","data":"%s"}`, b64(testIV[:15]), b64(testSalt), b64(testData)),
		"Long salt":          fmt.Sprintf(`{"v":"2","iv":"%s","salt":"%s","data":"%s"}`, b64(testIV), b64(append(bytes.Clone(testSalt), 1)), b64(testData)),
		"Wrong field names":  fmt.Sprintf(`{"version":"2","nonce":"%s","salt":"%s","ct":"%s"}`, b64(testIV), b64(testSalt), b64(testData)),
		"Random binary data": string([]byte{0x00, 0xff, 0x7b, 0x10}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			assert.False(t, IsWellFormed([]byte(data)))
			_, err := Decode([]byte(data))
			assert.ErrorIs(t, err, ErrInvalidBlock)
		})
	}
}

func TestDecode_MissingFieldNamed(t *testing.T) {
	data := fmt.Sprintf(`{"v":"2","iv":"%s","data":"%s"}`, b64(testIV), b64(testData))
	_, err := Decode([]byte(data))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "salt", verr.Field)
	t.Log(err)
}
