// Package deck builds the 57-card Spot-It deck from the projective plane of
// order 7: 57 points, 57 lines of 8 points each, any two lines meeting in
// exactly one point. It is a leaf package with no imports from the rest of
// internal/.
package deck

import (
	"fmt"
	"math/rand"
	"sort"

	"spotit/pkg/config"
)

// Symbol is an opaque identifier into the fixed 57-glyph display table. The
// display glyph is a presentation concern, resolved only at the HTTP
// boundary.
type Symbol int

// symbolGlyphs is the fixed display table; index == Symbol value. Resolving a
// Symbol to its glyph is purely presentational and belongs at the gateway
// boundary, never inside the engine or the codec.
var symbolGlyphs = [config.DeckSize]string{
	"⚓", "🍎", "🍌", "🐝", "🔔", "🦋", "🕯️", "🌵", "🎈", "🦜",
	"🧀", "🍒", "🌶️", "🕰️", "🍀", "👁️", "☁️", "🎯", "🐉", "💧",
	"🐘", "👣", "🔥", "🐟", "🦊", "🍇", "🎸", "❤️", "🐴", "🧊",
	"🔑", "🪁", "🦁", "🔒", "🌙", "🍄", "🎵", "🦉", "🐼", "🐧",
	"🍕", "🌈", "🐀", "🤖", "⚽", "⭐", "☀️", "🌳", "🚂", "☂️",
	"🦄", "🌋", "🕸️", "🐋", "🍷", "⌚", "🦓",
}

// Glyph resolves a Symbol to its presentation glyph. Out-of-range symbols
// render as a placeholder rather than panicking, since this is only ever
// reached at the HTTP boundary on data the engine has already validated.
func Glyph(s Symbol) string {
	if s < 0 || int(s) >= len(symbolGlyphs) {
		return "?"
	}
	return symbolGlyphs[s]
}

var glyphToSymbol map[string]Symbol

// SymbolForGlyph is Glyph's inverse: it resolves a browser click on a
// rendered symbol back to its internal Symbol id.
func SymbolForGlyph(glyph string) (Symbol, bool) {
	if glyphToSymbol == nil {
		glyphToSymbol = make(map[string]Symbol, len(symbolGlyphs))
		for i, g := range symbolGlyphs {
			glyphToSymbol[g] = Symbol(i)
		}
	}
	s, ok := glyphToSymbol[glyph]
	return s, ok
}

// Placement is a symbol rendered on a card.
type Placement struct {
	Symbol   Symbol  `json:"symbol"`
	Slot     int     `json:"slot"`     // 0 = center, 1..7 = ring
	Size     int     `json:"size"`     // [20,80]
	Rotation float64 `json:"rotation"` // [0,360)
}

// Card is an unordered collection of exactly config.SymbolsPerCard Placements
// with pairwise-distinct symbols.
type Card struct {
	Placements [config.SymbolsPerCard]Placement `json:"placements"`
}

// Symbols returns the set of symbols on the card.
func (c Card) Symbols() map[Symbol]struct{} {
	out := make(map[Symbol]struct{}, len(c.Placements))
	for _, p := range c.Placements {
		out[p.Symbol] = struct{}{}
	}
	return out
}

// HasSymbol reports whether the card carries the given symbol.
func (c Card) HasSymbol(s Symbol) bool {
	for _, p := range c.Placements {
		if p.Symbol == s {
			return true
		}
	}
	return false
}

// Deck is an ordered sequence of config.DeckSize distinct Cards.
type Deck []Card

// point is a canonical representative of a projective point: a triple over
// GF(7), normalized so its first nonzero coordinate is 1.
type point [3]int

// inverseMod7 is precomputed since GF(7) is tiny and fixed.
var inverseMod7 = [7]int{0, 1, 4, 5, 2, 3, 6} // i * inverseMod7[i] % 7 == 1 for i in 1..6

func normalize(x, y, z int) point {
	x, y, z = ((x%7)+7)%7, ((y%7)+7)%7, ((z%7)+7)%7
	var lead int
	switch {
	case x != 0:
		lead = x
	case y != 0:
		lead = y
	default:
		lead = z
	}
	inv := inverseMod7[lead]
	return point{(x * inv) % 7, (y * inv) % 7, (z * inv) % 7}
}

// points enumerates the 57 canonical points of PG(2,7): all 343 triples over
// GF(7) excluding (0,0,0), normalized and deduplicated.
func points() []point {
	seen := make(map[point]struct{}, config.DeckSize)
	var ordered []point
	for x := 0; x < 7; x++ {
		for y := 0; y < 7; y++ {
			for z := 0; z < 7; z++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				p := normalize(x, y, z)
				if _, ok := seen[p]; !ok {
					seen[p] = struct{}{}
					ordered = append(ordered, p)
				}
			}
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	if len(ordered) != config.DeckSize {
		panic(fmt.Sprintf("deck: expected %d projective points, got %d", config.DeckSize, len(ordered)))
	}
	return ordered
}

// lines enumerates the 57 lines of PG(2,7): for every nonzero coefficient
// triple (a,b,c), the points satisfying ax+by+cz≡0 (mod 7); deduplicated by
// point-index membership since proportional coefficient triples define the
// same line.
func lines(pts []point) [][]int {
	seen := make(map[uint64]struct{}, config.DeckSize)
	var out [][]int
	for a := 0; a < 7; a++ {
		for b := 0; b < 7; b++ {
			for c := 0; c < 7; c++ {
				if a == 0 && b == 0 && c == 0 {
					continue
				}
				var members []int
				var mask uint64
				for idx, p := range pts {
					if (a*p[0]+b*p[1]+c*p[2])%7 == 0 {
						members = append(members, idx)
						mask |= 1 << uint(idx)
					}
				}
				if len(members) != config.SymbolsPerCard {
					continue // malformed coefficient triple for this plane; never reached for q=7
				}
				if _, ok := seen[mask]; ok {
					continue
				}
				seen[mask] = struct{}{}
				out = append(out, members)
			}
		}
	}
	if len(out) != config.DeckSize {
		panic(fmt.Sprintf("deck: expected %d projective lines, got %d", config.DeckSize, len(out)))
	}
	return out
}

// Generate builds the complete, unshuffled 57-card deck. Placement slot
// permutation, size, and rotation are drawn from rng, which the caller owns
// and seeds; a fixed seed reproduces the deck exactly.
func Generate(rng *rand.Rand) Deck {
	pts := points()
	ls := lines(pts)

	out := make(Deck, 0, config.DeckSize)
	for _, members := range ls {
		perm := rng.Perm(config.SymbolsPerCard)
		var card Card
		for i, ptIdx := range members {
			slot := perm[i]
			card.Placements[slot] = Placement{
				Symbol:   Symbol(ptIdx),
				Slot:     slot,
				Size:     config.MinPlacementSz + rng.Intn(config.MaxPlacementSz-config.MinPlacementSz+1),
				Rotation: rng.Float64() * config.RotationDegrees,
			}
		}
		out = append(out, card)
	}
	return out
}

// Shuffle permutes a deck in place using Fisher-Yates.
func Shuffle(d Deck, rng *rand.Rand) {
	for i := len(d) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		d[i], d[j] = d[j], d[i]
	}
}
