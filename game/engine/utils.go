package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
)

// Shuffle permutes items in place with the Fisher-Yates algorithm.
// Every permutation is equally likely given a uniform source.
func Shuffle[T any](rng *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// NewRand returns a PCG source seeded from crypto/rand
func NewRand() *rand.Rand {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the runtime source
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}

// NewSeededRand returns a deterministic source, used by tests and replays
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// cardInitial returns the upper-cased first letter of an answer
func cardInitial(answer string) string {
	r, _ := utf8.DecodeRuneInString(answer)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// buildIconPile lays out one card per riddle in a freshly shuffled order
func buildIconPile(rng *rand.Rand, riddles []Riddle) []IconCard {
	pile := lo.Map(riddles, func(r Riddle, _ int) IconCard {
		return IconCard{
			Answer:  r.Answer,
			Label:   strings.Split(r.Answer, "/")[0],
			Icon:    r.Icon,
			Initial: cardInitial(r.Answer),
		}
	})
	Shuffle(rng, pile)
	return pile
}
