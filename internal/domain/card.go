package domain

// Letter is the symbol printed on a card.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
)

// Color is the symbol color of a card.
type Color string

const (
	ColorRed   Color = "red"
	ColorGreen Color = "green"
	ColorBlue  Color = "blue"
)

// Size is the symbol size of a card.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Fill is the symbol fill style of a card.
type Fill string

const (
	FillSolid   Fill = "solid"
	FillStriped Fill = "striped"
	FillEmpty   Fill = "empty"
)

// Card is a single immutable RGBZET card definition. Decks reference catalog
// entries by value; cards are never mutated after creation.
type Card struct {
	ID     int    `json:"id"`
	Letter Letter `json:"letter"`
	Color  Color  `json:"color"`
	Size   Size   `json:"size"`
	Fill   Fill   `json:"fill"`
	Points int    `json:"points"`
}

// cardCatalog is the fixed card pool. The deck is sampled from these 26
// entries with replacement, so duplicates in play are expected.
var cardCatalog = []Card{
	{ID: 0, Letter: LetterA, Color: ColorRed, Size: SizeSmall, Fill: FillSolid, Points: 2},
	{ID: 1, Letter: LetterB, Color: ColorGreen, Size: SizeMedium, Fill: FillStriped, Points: 3},
	{ID: 2, Letter: LetterC, Color: ColorBlue, Size: SizeLarge, Fill: FillEmpty, Points: 4},
	{ID: 3, Letter: LetterD, Color: ColorRed, Size: SizeMedium, Fill: FillEmpty, Points: 4},
	{ID: 4, Letter: LetterA, Color: ColorGreen, Size: SizeLarge, Fill: FillStriped, Points: 3},
	{ID: 5, Letter: LetterB, Color: ColorBlue, Size: SizeSmall, Fill: FillSolid, Points: 2},
	{ID: 6, Letter: LetterC, Color: ColorRed, Size: SizeSmall, Fill: FillStriped, Points: 3},
	{ID: 7, Letter: LetterD, Color: ColorGreen, Size: SizeMedium, Fill: FillSolid, Points: 2},
	{ID: 8, Letter: LetterA, Color: ColorBlue, Size: SizeLarge, Fill: FillEmpty, Points: 5},
	{ID: 9, Letter: LetterB, Color: ColorRed, Size: SizeLarge, Fill: FillSolid, Points: 3},
	{ID: 10, Letter: LetterC, Color: ColorGreen, Size: SizeSmall, Fill: FillEmpty, Points: 4},
	{ID: 11, Letter: LetterD, Color: ColorBlue, Size: SizeMedium, Fill: FillStriped, Points: 3},
	{ID: 12, Letter: LetterA, Color: ColorRed, Size: SizeMedium, Fill: FillStriped, Points: 3},
	{ID: 13, Letter: LetterB, Color: ColorGreen, Size: SizeLarge, Fill: FillEmpty, Points: 5},
	{ID: 14, Letter: LetterC, Color: ColorBlue, Size: SizeMedium, Fill: FillSolid, Points: 2},
	{ID: 15, Letter: LetterD, Color: ColorRed, Size: SizeSmall, Fill: FillEmpty, Points: 4},
	{ID: 16, Letter: LetterA, Color: ColorGreen, Size: SizeSmall, Fill: FillSolid, Points: 2},
	{ID: 17, Letter: LetterB, Color: ColorBlue, Size: SizeLarge, Fill: FillStriped, Points: 4},
	{ID: 18, Letter: LetterC, Color: ColorRed, Size: SizeLarge, Fill: FillEmpty, Points: 5},
	{ID: 19, Letter: LetterD, Color: ColorGreen, Size: SizeSmall, Fill: FillStriped, Points: 3},
	{ID: 20, Letter: LetterA, Color: ColorBlue, Size: SizeMedium, Fill: FillSolid, Points: 2},
	{ID: 21, Letter: LetterB, Color: ColorRed, Size: SizeSmall, Fill: FillEmpty, Points: 4},
	{ID: 22, Letter: LetterC, Color: ColorGreen, Size: SizeMedium, Fill: FillStriped, Points: 3},
	{ID: 23, Letter: LetterD, Color: ColorBlue, Size: SizeLarge, Fill: FillSolid, Points: 3},
	{ID: 24, Letter: LetterA, Color: ColorRed, Size: SizeLarge, Fill: FillStriped, Points: 4},
	{ID: 25, Letter: LetterB, Color: ColorGreen, Size: SizeSmall, Fill: FillSolid, Points: 2},
}

// Catalog returns a copy of the full card catalog.
func Catalog() []Card {
	out := make([]Card, len(cardCatalog))
	copy(out, cardCatalog)
	return out
}

// CatalogSize returns the number of distinct card definitions.
func CatalogSize() int {
	return len(cardCatalog)
}

// CardByID looks up a catalog entry by its id.
func CardByID(id int) (Card, bool) {
	if id < 0 || id >= len(cardCatalog) {
		return Card{}, false
	}
	return cardCatalog[id], true
}
