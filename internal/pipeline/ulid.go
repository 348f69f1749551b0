package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job IDs are ULIDs: 48 bits of millisecond time then 80 random bits,
// written as 26 Crockford base32 characters. IDs minted in the same
// millisecond increment the random part so they stay sorted.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var ulids = &ulidSource{}

type ulidSource struct {
	mu      sync.Mutex
	lastMs  uint64
	lastRnd [10]byte
}

func generateULID() string {
	return ulids.next(time.Now())
}

func (s *ulidSource) next(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := uint64(now.UnixMilli())
	if ms == s.lastMs {
		incr(s.lastRnd[:])
	} else {
		s.lastMs = ms
		_, _ = rand.Read(s.lastRnd[:])
	}

	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], ms<<16)
	copy(b[6:], s.lastRnd[:])
	return encodeULID(b)
}

// incr adds one to a big-endian byte counter, wrapping on overflow.
func incr(b []byte) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

// encodeULID writes 128 bits as 26 base32 digits, most significant first.
// The first digit carries only the top 3 bits.
func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[:8])
	lo := binary.BigEndian.Uint64(b[8:])

	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
