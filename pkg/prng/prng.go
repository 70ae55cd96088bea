// Package prng provides a seeded byte source for reproducible fixtures.
package prng

import (
	"encoding/binary"
	"io"
	"math/rand"
)

// Reader is a deterministic io.Reader backed by a math/rand source. It is
// not safe for concurrent use.
type Reader struct {
	r   *rand.Rand
	buf [8]byte
	n   int // unread bytes left in buf
}

// New returns a reader whose output depends only on seed.
func New(seed int64) io.Reader {
	return &Reader{r: rand.New(rand.NewSource(seed))}
}

// Read fills p with pseudorandom bytes. It never fails.
func (r *Reader) Read(p []byte) (int, error) {
	for i := range p {
		if r.n == 0 {
			binary.LittleEndian.PutUint64(r.buf[:], r.r.Uint64())
			r.n = len(r.buf)
		}
		p[i] = r.buf[len(r.buf)-r.n]
		r.n--
	}
	return len(p), nil
}
