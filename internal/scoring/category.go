package scoring

// Category is one of the 13 scoring categories. The upper section sums
// matching faces; the lower section scores patterns.
type Category string

const (
	Ones   Category = "ones"
	Twos   Category = "twos"
	Threes Category = "threes"
	Fours  Category = "fours"
	Fives  Category = "fives"
	Sixes  Category = "sixes"

	ThreeOfAKind  Category = "three_of_a_kind"
	FourOfAKind   Category = "four_of_a_kind"
	FullHouse     Category = "full_house"
	SmallStraight Category = "small_straight"
	LargeStraight Category = "large_straight"
	Dicee         Category = "dicee"
	Chance        Category = "chance"
)

// AllCategories in scorecard order.
var AllCategories = []Category{
	Ones, Twos, Threes, Fours, Fives, Sixes,
	ThreeOfAKind, FourOfAKind, FullHouse, SmallStraight, LargeStraight, Dicee, Chance,
}

var upperFace = map[Category]int{
	Ones: 1, Twos: 2, Threes: 3, Fours: 4, Fives: 5, Sixes: 6,
}

// IsUpper reports whether c belongs to the upper section.
func IsUpper(c Category) bool {
	_, ok := upperFace[c]
	return ok
}

// Valid reports whether c is a known category.
func Valid(c Category) bool {
	if IsUpper(c) {
		return true
	}
	switch c {
	case ThreeOfAKind, FourOfAKind, FullHouse, SmallStraight, LargeStraight, Dicee, Chance:
		return true
	}
	return false
}
