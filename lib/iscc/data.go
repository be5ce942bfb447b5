package iscc

import (
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

const (
	// Chunks cut with the small parameters before switching to the large ones.
	dataSmallChunks = 100
	minhashPerms    = 128
	mersennePrime   = (1 << 61) - 1
	maxHash         = (1 << 32) - 1
)

type cdcParams struct {
	min, avg, max int
	// Stricter mask below avg, looser above.
	maskS, maskL uint64
}

var (
	cdcSmall = newCDCParams(64)
	cdcLarge = newCDCParams(4096)
	gear     = gearTable()
)

var permA, permB = minhashPermutations()

// Average size must be a power of two.
func newCDCParams(avg int) cdcParams {
	n := bits.Len(uint(avg)) - 1
	return cdcParams{
		min:   avg / 4,
		avg:   avg,
		max:   avg * 8,
		maskS: topBits(n + 1),
		maskL: topBits(n - 1),
	}
}

func topBits(n int) uint64 {
	return ^uint64(0) << (64 - n)
}

func gearTable() [256]uint64 {
	var t [256]uint64
	buf := []byte("datadoc-gear-00")
	for i := range t {
		buf[len(buf)-1] = byte(i)
		t[i] = xxhash.Sum64(buf)
	}
	return t
}

// Universal hash parameters from a fixed splitmix64 stream.
func minhashPermutations() (a, b [minhashPerms]uint64) {
	state := uint64(0x15CC)
	next := func() uint64 {
		state += 0x9E3779B97F4A7C15
		z := state
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		return z ^ (z >> 31)
	}
	for i := 0; i < minhashPerms; i++ {
		a[i] = next()%(mersennePrime-1) + 1
		b[i] = next() % mersennePrime
	}
	return a, b
}

// DataID computes the Data-ID: content-defined chunks of the raw bytes,
// 32-bit xxhash features per chunk, then a 64-bit minhash.
func DataID(data []byte) string {
	features := chunkFeatures(data)

	var body uint64
	for i := 0; i < 64; i++ {
		body = body<<1 | minhash(features, i)&1
	}

	return Component{Header: HeaderData, Body: body}.String()
}

func chunkFeatures(data []byte) []uint32 {
	if len(data) == 0 {
		return []uint32{uint32(xxhash.Sum64(nil))}
	}

	var features []uint32
	for count := 0; len(data) > 0; count++ {
		p := cdcLarge
		if count < dataSmallChunks {
			p = cdcSmall
		}
		cut := cutPoint(data, p)
		features = append(features, uint32(xxhash.Sum64(data[:cut])))
		data = data[cut:]
	}
	return features
}

// Gear-hash cut point of the next chunk.
func cutPoint(data []byte, p cdcParams) int {
	n := len(data)
	if n <= p.min {
		return n
	}
	if n > p.max {
		n = p.max
	}
	normal := min(p.avg, n)

	var fp uint64
	i := p.min
	for ; i < normal; i++ {
		fp = (fp << 1) + gear[data[i]]
		if fp&p.maskS == 0 {
			return i + 1
		}
	}
	for ; i < n; i++ {
		fp = (fp << 1) + gear[data[i]]
		if fp&p.maskL == 0 {
			return i + 1
		}
	}
	return n
}

// Minimum of permutation i over all features.
func minhash(features []uint32, i int) uint64 {
	best := uint64(maxHash)
	for _, f := range features {
		hi, lo := bits.Mul64(permA[i], uint64(f))
		lo, carry := bits.Add64(lo, permB[i], 0)
		h := bits.Rem64(hi+carry, lo, mersennePrime) & maxHash
		if h < best {
			best = h
		}
	}
	return best
}
