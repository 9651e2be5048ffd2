// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package argon2d

import (
	"encoding/binary"
	"hash"
	"sync"

	bin "github.com/saylorsolutions/binmap"
	"golang.org/x/crypto/blake2b"
)

// Version is the Argon2 version implemented by this package.
const Version = 0x13

const (
	modeD  uint32 = 0
	modeID uint32 = 2
)

const (
	blockLength = 128
	syncPoints  = 4
)

type block [blockLength]uint64

// Key derives a key of keyLen bytes from the password and salt using Argon2d.
// The time and threads parameters must be greater than zero.
func Key(password, salt []byte, time, memory uint32, threads uint8, keyLen uint32) []byte {
	return deriveKey(modeD, password, salt, nil, nil, time, memory, threads, keyLen)
}

// KeyWithSecret is like Key, but also mixes an optional secret value and associated data into the initial hash.
func KeyWithSecret(password, salt, secret, data []byte, time, memory uint32, threads uint8, keyLen uint32) []byte {
	return deriveKey(modeD, password, salt, secret, data, time, memory, threads, keyLen)
}

func deriveKey(mode uint32, password, salt, secret, data []byte, time, memory uint32, threads uint8, keyLen uint32) []byte {
	if time < 1 {
		panic("argon2d: number of rounds too small")
	}
	if threads < 1 {
		panic("argon2d: parallelism degree too low")
	}
	h0 := initHash(password, salt, secret, data, time, memory, uint32(threads), keyLen, mode)

	memory = memory / (syncPoints * uint32(threads)) * (syncPoints * uint32(threads))
	if memory < 2*syncPoints*uint32(threads) {
		memory = 2 * syncPoints * uint32(threads)
	}
	B := initBlocks(&h0, memory, uint32(threads))
	processBlocks(B, time, memory, uint32(threads), mode)
	return extractKey(B, memory, uint32(threads), keyLen)
}

// hashParams lays out the fixed-size prefix of H0 as little-endian 32-bit values.
type hashParams struct {
	threads uint32
	keyLen  uint32
	memory  uint32
	time    uint32
	version uint32
	mode    uint32
}

func (p *hashParams) mapper() bin.Mapper {
	return bin.MapSequence(
		bin.Int(&p.threads),
		bin.Int(&p.keyLen),
		bin.Int(&p.memory),
		bin.Int(&p.time),
		bin.Int(&p.version),
		bin.Int(&p.mode),
	)
}

func writeLenPrefixed(h hash.Hash, data []byte) {
	n := uint32(len(data))
	_ = bin.Int(&n).Write(h, binary.LittleEndian)
	h.Write(data)
}

func initHash(password, salt, key, data []byte, time, memory, threads, keyLen, mode uint32) [blake2b.Size + 8]byte {
	var h0 [blake2b.Size + 8]byte

	params := hashParams{
		threads: threads,
		keyLen:  keyLen,
		memory:  memory,
		time:    time,
		version: Version,
		mode:    mode,
	}
	b2, _ := blake2b.New512(nil)
	// Writes to a hash.Hash never fail.
	_ = params.mapper().Write(b2, binary.LittleEndian)
	writeLenPrefixed(b2, password)
	writeLenPrefixed(b2, salt)
	writeLenPrefixed(b2, key)
	writeLenPrefixed(b2, data)
	b2.Sum(h0[:0])
	return h0
}

func initBlocks(h0 *[blake2b.Size + 8]byte, memory, threads uint32) []block {
	var block0 [1024]byte
	B := make([]block, memory)
	for lane := uint32(0); lane < threads; lane++ {
		j := lane * (memory / threads)
		binary.LittleEndian.PutUint32(h0[blake2b.Size+4:], lane)

		binary.LittleEndian.PutUint32(h0[blake2b.Size:], 0)
		blake2bHash(block0[:], h0[:])
		for i := range B[j+0] {
			B[j+0][i] = binary.LittleEndian.Uint64(block0[i*8:])
		}

		binary.LittleEndian.PutUint32(h0[blake2b.Size:], 1)
		blake2bHash(block0[:], h0[:])
		for i := range B[j+1] {
			B[j+1][i] = binary.LittleEndian.Uint64(block0[i*8:])
		}
	}
	return B
}

func processBlocks(B []block, time, memory, threads uint32, mode uint32) {
	lanes := memory / threads
	segments := lanes / syncPoints

	// Only the Argon2id cross-check mode uses data-independent addressing, and only for the first half of the first pass.
	independent := func(n, slice uint32) bool {
		return mode == modeID && n == 0 && slice < syncPoints/2
	}

	processSegment := func(n, slice, lane uint32, wg *sync.WaitGroup) {
		defer wg.Done()
		var addresses, in, zero block
		if independent(n, slice) {
			in[0] = uint64(n)
			in[1] = uint64(lane)
			in[2] = uint64(slice)
			in[3] = uint64(memory)
			in[4] = uint64(time)
			in[5] = uint64(mode)
		}

		index := uint32(0)
		if n == 0 && slice == 0 {
			index = 2 // the first two blocks of each lane come from initBlocks
			if independent(n, slice) {
				in[6]++
				processBlock(&addresses, &in, &zero)
				processBlock(&addresses, &addresses, &zero)
			}
		}

		offset := lane*lanes + slice*segments + index
		var random uint64
		for index < segments {
			prev := offset - 1
			if index == 0 && slice == 0 {
				prev += lanes // last block in lane
			}
			if independent(n, slice) {
				if index%blockLength == 0 {
					in[6]++
					processBlock(&addresses, &in, &zero)
					processBlock(&addresses, &addresses, &zero)
				}
				random = addresses[index%blockLength]
			} else {
				random = B[prev][0]
			}
			newOffset := indexAlpha(random, lanes, segments, threads, n, slice, lane, index)
			processBlockXOR(&B[offset], &B[prev], &B[newOffset])
			index, offset = index+1, offset+1
		}
	}

	for n := uint32(0); n < time; n++ {
		for slice := uint32(0); slice < syncPoints; slice++ {
			var wg sync.WaitGroup
			for lane := uint32(0); lane < threads; lane++ {
				wg.Add(1)
				go processSegment(n, slice, lane, &wg)
			}
			wg.Wait()
		}
	}
}

func extractKey(B []block, memory, threads, keyLen uint32) []byte {
	lanes := memory / threads
	for lane := uint32(0); lane < threads-1; lane++ {
		for i, v := range B[(lane*lanes)+lanes-1] {
			B[memory-1][i] ^= v
		}
	}

	var final [1024]byte
	for i, v := range B[memory-1] {
		binary.LittleEndian.PutUint64(final[i*8:], v)
	}
	key := make([]byte, keyLen)
	blake2bHash(key, final[:])
	return key
}

func indexAlpha(rand uint64, lanes, segments, threads, n, slice, lane, index uint32) uint32 {
	refLane := uint32(rand>>32) % threads
	if n == 0 && slice == 0 {
		refLane = lane
	}
	m, s := 3*segments, ((slice+1)%syncPoints)*segments
	if lane == refLane {
		m += index
	}
	if n == 0 {
		m, s = slice*segments, 0
		if slice == 0 || lane == refLane {
			m += index
		}
	}
	if index == 0 || lane == refLane {
		m--
	}
	return phi(rand, uint64(m), uint64(s), refLane, lanes)
}

func phi(rand, m, s uint64, lane, lanes uint32) uint32 {
	p := rand & 0xFFFFFFFF
	p = (p * p) >> 32
	p = (p * m) >> 32
	return lane*lanes + uint32((s+m-(p+1))%uint64(lanes))
}
