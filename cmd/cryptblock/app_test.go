package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/absfs/memfs"
	"github.com/saylorsolutions/cryptblock/cmd/internal"
	"github.com/saylorsolutions/cryptblock/pkg/envelope"
	"github.com/saylorsolutions/cryptblock/pkg/kdf"
	"github.com/saylorsolutions/cryptblock/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	pass      string
	confirmed []bool
}

func (s *staticSource) Obtain(confirm bool) ([]byte, error) {
	s.confirmed = append(s.confirmed, confirm)
	return []byte(s.pass), nil
}

func testApp(t *testing.T, cfg config) (*app, *staticSource, *bytes.Buffer) {
	t.Helper()
	fsys, err := memfs.NewFS()
	require.NoError(t, err)
	reg, err := kdf.NewRegistry(kdf.WithDeriver(kdf.V2, kdf.DeriverFunc(func(passphrase, salt []byte) ([]byte, error) {
		sum := sha256.Sum256(append(append([]byte("test:"), passphrase...), salt...))
		return sum[:], nil
	})))
	require.NoError(t, err)

	var (
		src = &staticSource{pass: "test-pass"}
		out bytes.Buffer
	)
	orig := internal.Output
	internal.Output = new(bytes.Buffer)
	t.Cleanup(func() {
		internal.Output = orig
	})
	return &app{
		cfg:      cfg,
		store:    store.New(fsys),
		source:   src,
		registry: reg,
		stdin:    strings.NewReader(""),
		stdout:   &out,
	}, src, &out
}

func TestRun_EncryptDecryptFiles(t *testing.T) {
	a, src, _ := testApp(t, config{input: "/secret.txt"})
	require.NoError(t, a.store.Write("/secret.txt", []byte("hello world")))

	require.NoError(t, a.run(context.Background()))
	data, err := a.store.Read("/secret.txt.json")
	require.NoError(t, err)
	b, err := envelope.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, kdf.Latest, b.Version())
	assert.Equal(t, []bool{true}, src.confirmed, "Encrypting must confirm the passphrase")

	a.cfg = config{input: "/secret.txt.json", output: "/restored.txt", decrypt: true}
	require.NoError(t, a.run(context.Background()))
	restored, err := a.store.Read("/restored.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(restored))
	assert.Equal(t, []bool{true, false}, src.confirmed, "Decrypting must not confirm the passphrase")
}

func TestRun_DecryptDefaultOutput(t *testing.T) {
	a, _, _ := testApp(t, config{input: "/notes"})
	require.NoError(t, a.store.Write("/notes", []byte("some notes")))
	require.NoError(t, a.run(context.Background()))

	a.cfg = config{input: "/notes.json", decrypt: true}
	assert.ErrorIs(t, a.run(context.Background()), errOutputTaken, "The original file is still there")

	a.cfg = config{input: "/notes.json", toStdout: true}
	require.NoError(t, a.run(context.Background()))
}

func TestRun_Stdin(t *testing.T) {
	a, _, out := testApp(t, config{output: "/from-stdin.json"})
	a.stdin = strings.NewReader("piped content\n")
	require.NoError(t, a.run(context.Background()))

	a.cfg = config{input: "/from-stdin.json", toStdout: true}
	require.NoError(t, a.run(context.Background()))
	assert.Equal(t, "piped content\n", out.String())
}

func TestRun_LegacyVersion(t *testing.T) {
	a, _, out := testApp(t, config{input: "/old.txt", blockVersion: "1"})
	require.NoError(t, a.store.Write("/old.txt", []byte("legacy")))
	require.NoError(t, a.run(context.Background()))

	data, err := a.store.Read("/old.txt.json")
	require.NoError(t, err)
	b, err := envelope.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, kdf.V1, b.Version())

	a.cfg = config{input: "/old.txt.json", toStdout: true}
	require.NoError(t, a.run(context.Background()))
	assert.Equal(t, "legacy", out.String())
	assert.Contains(t, internal.Output.(*bytes.Buffer).String(), "WARNING: block uses version '1'")
}

func TestRun_QR(t *testing.T) {
	a, _, out := testApp(t, config{input: "/qr.txt", qrTerminal: true, qrPNG: "/qr.png"})
	require.NoError(t, a.store.Write("/qr.txt", []byte("scan me")))
	require.NoError(t, a.run(context.Background()))
	assert.NotEmpty(t, out.String())

	img, err := a.store.Read("/qr.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))
}

func TestRun_Neg(t *testing.T) {
	tests := map[string]struct {
		cfg   config
		setup func(t *testing.T, a *app)
		err   error
	}{
		"No input or output": {
			cfg: config{},
			err: errUsage,
		},
		"Output exists": {
			cfg: config{input: "/in.txt", output: "/out.json"},
			setup: func(t *testing.T, a *app) {
				require.NoError(t, a.store.Write("/in.txt", []byte("data")))
				require.NoError(t, a.store.Write("/out.json", []byte("keep me")))
			},
			err: errOutputTaken,
		},
		"Missing input": {
			cfg: config{input: "/missing.txt"},
			err: store.ErrNotFound,
		},
		"Decrypt plain file": {
			cfg: config{input: "/plain.txt", toStdout: true},
			setup: func(t *testing.T, a *app) {
				require.NoError(t, a.store.Write("/plain.txt", []byte("not a block")))
			},
			err: errNotBlock,
		},
		"Unknown block version": {
			cfg: config{input: "/in.txt", blockVersion: "99"},
			setup: func(t *testing.T, a *app) {
				require.NoError(t, a.store.Write("/in.txt", []byte("data")))
			},
			err: kdf.ErrUnsupportedVersion,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			a, src, _ := testApp(t, tc.cfg)
			if tc.setup != nil {
				tc.setup(t, a)
			}
			assert.ErrorIs(t, a.run(context.Background()), tc.err)
			assert.Empty(t, src.confirmed, "No passphrase should be requested")
		})
	}
}
