package domain

// IsZet reports whether three cards form a valid ZET. For each of the four
// attributes the values must be all equal or all pairwise distinct; exactly
// two matching values fails. Total over any three cards, order-independent.
func IsZet(a, b, c Card) bool {
	return allSameOrAllDistinct(a.Letter, b.Letter, c.Letter) &&
		allSameOrAllDistinct(a.Color, b.Color, c.Color) &&
		allSameOrAllDistinct(a.Size, b.Size, c.Size) &&
		allSameOrAllDistinct(a.Fill, b.Fill, c.Fill)
}

// TripleScore returns the combined point value of a matched triple. Only
// meaningful when IsZet holds for the same cards.
func TripleScore(a, b, c Card) int {
	return a.Points + b.Points + c.Points
}

func allSameOrAllDistinct[T comparable](a, b, c T) bool {
	if a == b && b == c {
		return true
	}
	return a != b && b != c && a != c
}
