package engine

import "github.com/DoyleJ11/dicee-room-backend/internal/scoring"

// nextOccupied finds the next occupied seat after index from, wrapping.
func nextOccupied(seats []Seat, from int) (int, bool) {
	n := len(seats)
	for step := 1; step <= n; step++ {
		i := (from + step + n) % n
		if seats[i].Occupied() {
			return i, true
		}
	}
	return 0, false
}

// BestAvailableCategory picks the unscored category worth the most points
// for the given dice. Ties go to the earlier category in scorecard order.
// Used by the turn-timeout fallback and the AI safe default.
func BestAvailableCategory(dice [5]int, card map[scoring.Category]int) (scoring.Category, bool) {
	best := scoring.Category("")
	bestScore := -1
	for _, c := range scoring.AllCategories {
		if _, scored := card[c]; scored {
			continue
		}
		if s := scoring.Score(dice, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore >= 0
}

// ContainsEvent reports whether events holds an event of the given type.
func ContainsEvent(events []Event, t EventType) bool {
	for _, e := range events {
		if e.Type == t {
			return true
		}
	}
	return false
}

func computeWinner(s State) string {
	winner := ""
	best := -1
	for i, seat := range s.Seats {
		if !seat.Occupied() {
			continue
		}
		if total := s.Totals(i).GrandTotal; total > best {
			winner, best = seat.UserID, total
		}
	}
	return winner
}
