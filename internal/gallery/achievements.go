package gallery

import "time"

type AchievementID string

const (
	AchFirstCall      AchievementID = "first_call"
	AchOracle         AchievementID = "oracle"
	AchHotStreak      AchievementID = "hot_streak"
	AchUnstoppable    AchievementID = "unstoppable"
	AchExactScience   AchievementID = "exact_science"
	AchDiceeWhisperer AchievementID = "dicee_whisperer"
	AchPointHoarder   AchievementID = "point_hoarder"
	AchGalleryRegular AchievementID = "gallery_regular"
)

// Achievement progress persists cumulatively; unlock is one-way.
type Achievement struct {
	ID         AchievementID `json:"id"`
	Name       string        `json:"name"`
	Threshold  int           `json:"threshold"`
	Progress   int           `json:"progress"`
	Unlocked   bool          `json:"unlocked"`
	UnlockedAt time.Time     `json:"unlockedAt,omitempty"`
}

type achievementDef struct {
	id        AchievementID
	name      string
	threshold int
	progress  func(Stats) int
}

var achievementDefs = []achievementDef{
	{AchFirstCall, "First Call", 1, func(s Stats) int { return s.CorrectPredictions }},
	{AchOracle, "Oracle", 25, func(s Stats) int { return s.CorrectPredictions }},
	{AchHotStreak, "Hot Streak", 3, func(s Stats) int { return s.BestStreak }},
	{AchUnstoppable, "Unstoppable", 7, func(s Stats) int { return s.BestStreak }},
	{AchExactScience, "Exact Science", 1, func(s Stats) int { return s.CorrectExact }},
	{AchDiceeWhisperer, "Dicee Whisperer", 5, func(s Stats) int { return s.CorrectDicee }},
	{AchPointHoarder, "Point Hoarder", 1000, func(s Stats) int { return s.TotalPoints }},
	{AchGalleryRegular, "Gallery Regular", 50, func(s Stats) int { return s.TotalPredictions }},
}

// Achievements reports the spectator's progress against all eight
// thresholds.
func (l *Ledger) Achievements(spectatorID string) []Achievement {
	st := *l.statsFor(spectatorID)
	earned := l.earned[spectatorID]

	out := make([]Achievement, 0, len(achievementDefs))
	for _, def := range achievementDefs {
		a := Achievement{
			ID:        def.id,
			Name:      def.name,
			Threshold: def.threshold,
			Progress:  def.progress(st),
		}
		if at, ok := earned[def.id]; ok {
			a.Unlocked = true
			a.UnlockedAt = at
			a.Progress = def.threshold
		} else if a.Progress >= def.threshold {
			a.Unlocked = true
		}
		out = append(out, a)
	}
	return out
}

// checkAchievements unlocks any newly crossed thresholds, recording the
// unlock time and queueing a notification.
func (l *Ledger) checkAchievements(spectatorID string, now time.Time) {
	st := *l.statsFor(spectatorID)
	earned := l.earned[spectatorID]
	if earned == nil {
		earned = map[AchievementID]time.Time{}
		l.earned[spectatorID] = earned
	}

	for _, def := range achievementDefs {
		if _, done := earned[def.id]; done {
			continue
		}
		if def.progress(st) < def.threshold {
			continue
		}
		earned[def.id] = now
		l.unlocks[spectatorID] = append(l.unlocks[spectatorID], Achievement{
			ID:         def.id,
			Name:       def.name,
			Threshold:  def.threshold,
			Progress:   def.threshold,
			Unlocked:   true,
			UnlockedAt: now,
		})
	}
}
