// Package queue implements the FIFO spectator waitlist and the promotion
// math for warm-seat transitions. It is a pure in-memory structure; the
// room actor owns the countdown and the actual seat assignment.
package queue

import (
	"errors"
	"time"
)

// MaxQueueSize caps the waitlist.
const MaxQueueSize = 20

var (
	ErrAlreadyQueued = errors.New("already in queue")
	ErrNotQueued     = errors.New("not in queue")
	ErrQueueFull     = errors.New("queue full")
	ErrAlreadySeated = errors.New("already seated")
)

// Entry is one queued spectator. Position is 1-based and contiguous.
type Entry struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	AvatarSeed  string    `json:"avatarSeed"`
	Position    int       `json:"position"`
	QueuedAt    time.Time `json:"queuedAt"`
}

// Queue is the room's join waitlist.
type Queue struct {
	entries []Entry
}

func New() *Queue {
	return &Queue{}
}

// Join appends the user. seated reports whether the user currently owns a
// seat; the caller resolves that against the seat manager.
func (q *Queue) Join(userID, displayName, avatarSeed string, seated bool, now time.Time) (Entry, error) {
	if seated {
		return Entry{}, ErrAlreadySeated
	}
	if _, ok := q.find(userID); ok {
		return Entry{}, ErrAlreadyQueued
	}
	if len(q.entries) >= MaxQueueSize {
		return Entry{}, ErrQueueFull
	}

	e := Entry{
		UserID:      userID,
		DisplayName: displayName,
		AvatarSeed:  avatarSeed,
		Position:    len(q.entries) + 1,
		QueuedAt:    now,
	}
	q.entries = append(q.entries, e)
	return e, nil
}

// Leave removes the user and renumbers the remainder contiguously.
func (q *Queue) Leave(userID string) error {
	i, ok := q.find(userID)
	if !ok {
		return ErrNotQueued
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	q.renumber()
	return nil
}

// PopFront removes and returns the first n entries (earliest joiners),
// renumbering the remainder.
func (q *Queue) PopFront(n int) []Entry {
	if n > len(q.entries) {
		n = len(q.entries)
	}
	if n <= 0 {
		return nil
	}
	popped := make([]Entry, n)
	copy(popped, q.entries[:n])
	q.entries = q.entries[n:]
	q.renumber()
	return popped
}

// Contains reports whether userID is queued.
func (q *Queue) Contains(userID string) bool {
	_, ok := q.find(userID)
	return ok
}

// Len returns the queue length.
func (q *Queue) Len() int { return len(q.entries) }

// Entries returns a copy of the queue in position order.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// WillGetSpot reports whether the entry is close enough to the front to be
// promoted given the current number of free seats.
func WillGetSpot(e Entry, availableSpots int) bool {
	return e.Position <= availableSpots
}

func (q *Queue) find(userID string) (int, bool) {
	for i, e := range q.entries {
		if e.UserID == userID {
			return i, true
		}
	}
	return 0, false
}

func (q *Queue) renumber() {
	for i := range q.entries {
		q.entries[i].Position = i + 1
	}
}
