/*
Package argon2d implements the data-dependent Argon2d variant of the Argon2 key derivation function, version 0x13 (RFC 9106).

The golang.org/x/crypto/argon2 package implements Argon2i and Argon2id, but keeps its Argon2d mode unexported.
Blocks produced with format version "2" were derived with Argon2d, so this package provides it to stay able to read them.
The memory filling and compression code follows the generic (non-assembly) path of golang.org/x/crypto/argon2.

# General guidelines:
  - Argon2d uses data-dependent memory access, so it's faster to attack with side channels than Argon2id. It's provided here for compatibility, prefer Argon2id for new formats.
  - The time parameter is the number of passes over memory, and the memory parameter is in KiB.
  - Memory is rounded down to a multiple of 4*threads blocks, with a minimum of 8*threads blocks.
*/
package argon2d
