package deck

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"spotit/pkg/config"
)

func TestGenerate_DeckSizeAndCardShape(t *testing.T) {
	d := Generate(rand.New(rand.NewSource(1)))
	require.Len(t, d, config.DeckSize)

	for _, c := range d {
		require.Len(t, c.Placements, config.SymbolsPerCard)
		seenSlots := make(map[int]struct{})
		seenSymbols := make(map[Symbol]struct{})
		for _, p := range c.Placements {
			seenSlots[p.Slot] = struct{}{}
			seenSymbols[p.Symbol] = struct{}{}
			require.GreaterOrEqual(t, p.Size, config.MinPlacementSz)
			require.LessOrEqual(t, p.Size, config.MaxPlacementSz)
			require.GreaterOrEqual(t, p.Rotation, 0.0)
			require.Less(t, p.Rotation, float64(config.RotationDegrees))
		}
		require.Len(t, seenSlots, config.SymbolsPerCard, "slots must form a permutation of [0..7]")
		require.Len(t, seenSymbols, config.SymbolsPerCard, "symbols on one card must be pairwise distinct")
	}
}

func TestGenerate_PairwiseIntersectionExactlyOne(t *testing.T) {
	d := Generate(rand.New(rand.NewSource(2)))
	for i := 0; i < len(d); i++ {
		si := d[i].Symbols()
		for j := i + 1; j < len(d); j++ {
			sj := d[j].Symbols()
			common := 0
			for s := range si {
				if _, ok := sj[s]; ok {
					common++
				}
			}
			require.Equal(t, 1, common, "cards %d and %d must share exactly one symbol", i, j)
		}
	}
}

func TestGenerate_DeterministicUnderFixedSeed(t *testing.T) {
	a := Generate(rand.New(rand.NewSource(42)))
	b := Generate(rand.New(rand.NewSource(42)))
	require.Equal(t, a, b, "two invocations with the same seeded rng must be identical")
}

func TestShuffle_PreservesMultiset(t *testing.T) {
	d := Generate(rand.New(rand.NewSource(3)))
	before := append(Deck{}, d...)
	Shuffle(d, rand.New(rand.NewSource(99)))
	require.Len(t, d, config.DeckSize)
	require.ElementsMatch(t, before, d, "shuffle must only reorder the cards")
}

func TestGlyph_OutOfRangeIsSafe(t *testing.T) {
	require.Equal(t, "?", Glyph(Symbol(-1)))
	require.Equal(t, "?", Glyph(Symbol(1000)))
}
