/*
Package envelope defines the encrypted Block and its textual form.

A Block is serialized as a single JSON object:

	{"v":"2","iv":"<base64>","salt":"<base64>","data":"<base64>"}

The "v" field names the key derivation version from package kdf.
Blocks written before versions existed have no "v" field, and Decode treats those as version "1".
That default is applied in Decode and nowhere else.

Decode and IsWellFormed only check structure. A structurally valid block with the wrong key material still decodes, and only fails when it's decrypted.
*/
package envelope
