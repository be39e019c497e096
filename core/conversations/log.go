package conversations

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrTurnMissing = errors.New("turn not found in log")
	ErrTurnEnded   = errors.New("turn already ended")
)

// Sequencer hands out strictly increasing turn sequence numbers. A single
// sequencer is shared by every log of a controller so numbers are never
// reused, even across sessions.
type Sequencer struct {
	mu   sync.Mutex
	last uint64
}

func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}

// Log is an ordered, append-only list of turns.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
	seq   *Sequencer
}

func NewLog(seq *Sequencer) *Log {
	if seq == nil {
		seq = &Sequencer{}
	}
	return &Log{seq: seq}
}

// Append adds a new turn and returns it with its assigned sequence number.
// A nil endedAt leaves the turn open until End is called.
func (l *Log) Append(speaker Speaker, text string, startedAt time.Time, endedAt *time.Time) Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	turn := Turn{
		Sequence:  l.seq.Next(),
		Speaker:   speaker,
		Text:      text,
		StartedAt: startedAt,
	}
	if endedAt != nil {
		ended := *endedAt
		turn.EndedAt = &ended
	}
	l.turns = append(l.turns, turn)
	return turn
}

// End closes an open turn. update may flag the turn before it becomes
// immutable.
func (l *Log) End(sequence uint64, endedAt time.Time, update func(*Turn)) (Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].Sequence != sequence {
			continue
		}
		if l.turns[i].EndedAt != nil {
			return l.turns[i], fmt.Errorf("failed to end turn %d: %w", sequence, ErrTurnEnded)
		}
		if update != nil {
			update(&l.turns[i])
		}
		if endedAt.Before(l.turns[i].StartedAt) {
			endedAt = l.turns[i].StartedAt
		}
		l.turns[i].EndedAt = &endedAt
		return l.turns[i], nil
	}

	return Turn{}, fmt.Errorf("failed to end turn %d: %w", sequence, ErrTurnMissing)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// History returns a deep copy of the logged turns, oldest first.
func (l *Log) History() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := make([]Turn, len(l.turns))
	for i, turn := range l.turns {
		history[i] = turn.clone()
	}
	return history
}

// Values is an iterator that goes over a snapshot of the turns starting from
// the earliest towards the latest
func (l *Log) Values(yield func(Turn) bool) {
	for _, turn := range l.History() {
		if !yield(turn) {
			return
		}
	}
}
