package stats

import (
	"context"
	"time"
)

type Outcome string

const (
	OutcomeAllowed   Outcome = "allowed"
	OutcomeDenied    Outcome = "denied"
	OutcomeSolved    Outcome = "solved"
	OutcomeFailed    Outcome = "failed"
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

// Event representa um desfecho observado.
//
// Key identifica o cliente (IP, header) ou o email do job. Cuidado com
// cardinalidade ao persistir Key/Path.
type Event struct {
	Key     string
	Outcome Outcome

	Method string
	Path   string

	At time.Time
}

type Store interface {
	Record(ctx context.Context, ev Event) error
}

// Counters agrega contagens por outcome.
type Counters map[Outcome]int64

func (c Counters) clone() Counters {
	out := make(Counters, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
