// Package scoring implements the pure dice-to-score rules. It has no
// knowledge of rooms, seats or turns; the engine consumes it as a plain
// function collaborator.
package scoring

const (
	fullHouseScore     = 25
	smallStraightScore = 30
	largeStraightScore = 40
	diceeScore         = 50

	// UpperBonus is added to the grand total when the upper subtotal
	// reaches UpperBonusThreshold.
	UpperBonus          = 35
	UpperBonusThreshold = 63
)

// Score returns the score the five dice earn in the given category.
// A category whose pattern requirement is not met scores 0; it may still
// be committed (scratching).
func Score(dice [5]int, c Category) int {
	counts := faceCounts(dice)

	if face, ok := upperFace[c]; ok {
		return counts[face] * face
	}

	switch c {
	case ThreeOfAKind:
		if maxCount(counts) >= 3 {
			return sum(dice)
		}
	case FourOfAKind:
		if maxCount(counts) >= 4 {
			return sum(dice)
		}
	case FullHouse:
		if isFullHouse(counts) {
			return fullHouseScore
		}
	case SmallStraight:
		if runLength(counts) >= 4 {
			return smallStraightScore
		}
	case LargeStraight:
		if runLength(counts) >= 5 {
			return largeStraightScore
		}
	case Dicee:
		if maxCount(counts) == 5 {
			return diceeScore
		}
	case Chance:
		return sum(dice)
	}
	return 0
}

// IsDicee reports five of a kind.
func IsDicee(dice [5]int) bool {
	return maxCount(faceCounts(dice)) == 5
}

// Totals folds a scorecard into its section totals.
type Totals struct {
	UpperSubtotal int
	UpperBonus    int
	LowerTotal    int
	GrandTotal    int
}

// ComputeTotals applies the upper-bonus rule to a committed scorecard.
// Unscored categories are simply absent from the map.
func ComputeTotals(card map[Category]int) Totals {
	var t Totals
	for c, s := range card {
		if IsUpper(c) {
			t.UpperSubtotal += s
		} else {
			t.LowerTotal += s
		}
	}
	if t.UpperSubtotal >= UpperBonusThreshold {
		t.UpperBonus = UpperBonus
	}
	t.GrandTotal = t.UpperSubtotal + t.UpperBonus + t.LowerTotal
	return t
}

func faceCounts(dice [5]int) [7]int {
	var counts [7]int
	for _, d := range dice {
		if d >= 1 && d <= 6 {
			counts[d]++
		}
	}
	return counts
}

func maxCount(counts [7]int) int {
	max := 0
	for _, n := range counts[1:] {
		if n > max {
			max = n
		}
	}
	return max
}

func sum(dice [5]int) int {
	total := 0
	for _, d := range dice {
		total += d
	}
	return total
}

func isFullHouse(counts [7]int) bool {
	hasThree, hasTwo := false, false
	for _, n := range counts[1:] {
		switch n {
		case 3:
			hasThree = true
		case 2:
			hasTwo = true
		}
	}
	return hasThree && hasTwo
}

// runLength returns the longest run of consecutive faces present.
func runLength(counts [7]int) int {
	best, cur := 0, 0
	for face := 1; face <= 6; face++ {
		if counts[face] > 0 {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}
