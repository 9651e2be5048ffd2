/*
Package kdf maps block format versions to the key derivation strategy used by that version.

Every block carries a version tag, and the tag alone decides how a passphrase and salt become the 32 byte AES-256 key.
This lets the default derivation change over time while older blocks stay readable.

# Versions:
  - "1" (Legacy): SHA-256 over the passphrase followed by the salt. Fast, kept only to read old blocks.
  - "2" (Latest): Argon2d with 10 passes over 64 MiB of memory using 2 lanes.

# General guidelines:
  - A Registry is built once with NewRegistry and is safe to share between goroutines, since it's never modified afterwards.
  - Unknown versions never fall back to another algorithm, they fail with ErrUnsupportedVersion.
  - Tests may swap in a fast Deriver for a version with WithDeriver, so they don't pay the Argon2d cost.
*/
package kdf
