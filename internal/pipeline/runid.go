package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Run ids are ULID-shaped: a 48-bit millisecond timestamp, a 16-bit sequence
// that counts ids minted within the same millisecond, then 64 random bits,
// written as 26 Crockford base32 characters.

var (
	runIDMu  sync.Mutex
	runIDTS  uint64
	runIDSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func newRunID() string {
	return newRunIDAt(time.Now())
}

func newRunIDAt(now time.Time) string {
	runIDMu.Lock()
	ts := uint64(now.UnixMilli())
	if ts == runIDTS {
		runIDSeq++
	} else {
		runIDTS = ts
		runIDSeq = 0
	}
	seq := runIDSeq
	runIDMu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], ts<<16)
	rand.Read(b[8:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeRunID(b)
}

// encodeRunID writes 128 bits as 26 base32 digits, most significant first.
// The leading digit holds only the top 3 bits.
func encodeRunID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])

	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
