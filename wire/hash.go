package wire

import "hash/fnv"

// HashSeed is mixed into every composite-key hash. It is a fixed constant
// rather than a per-process random value so hashes stay reproducible
// across runs and in tests, matching the teacher's
// sharded-cache hashing (session/cache.go) which likewise uses a stable
// FNV hash rather than a randomized one.
const HashSeed uint64 = 0x9e3779b97f4a7c15

// HashTokens mixes a seeded FNV-1a hash over an ordered sequence of string
// tokens, used for Pattern.Hash and any other composite key built from
// several discrete fields.
func HashTokens(tokens []string) uint64 {
	h := fnv.New64a()
	var seedBuf [8]byte
	PutUint64(seedBuf[:], HashSeed)
	_, _ = h.Write(seedBuf[:])
	for _, tok := range tokens {
		_, _ = h.Write([]byte(tok))
		_, _ = h.Write([]byte{0}) // separator so "a","bc" != "ab","c"
	}
	return h.Sum64()
}
