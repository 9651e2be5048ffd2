/*
Package blocklock encrypts data into versioned blocks with a passphrase, and decrypts them again.

# How it works:

Lock generates a fresh random IV and salt, derives a key from the passphrase and salt using the Locker's block version, and encrypts the plaintext with AES-256-CBC.
Before the block is returned, the ciphertext is decrypted again with the same key and IV and compared to the original plaintext.
If they differ, Lock fails with ErrIntegrity and no block is produced.

Unlock derives the key using the version recorded in the block, so blocks written with an older default version still decrypt.
Decrypting a block that isn't on the latest version produces an Advisory, which doesn't stop decryption.

# General guidelines:
  - There are no retries. A wrong passphrase fails the same way every time.
  - CBC isn't authenticated. A wrong passphrase usually fails with cbc.ErrDecryption, but may instead produce garbage output.
  - Key derivation for version "2" takes a noticeable amount of time and 64 MiB of memory. It runs in its own goroutine, and a cancelled context abandons it.
*/
package blocklock
