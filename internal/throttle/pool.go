package throttle

import (
	"context"
	"time"
)

// SlotPool representa um recurso com capacidade finita.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar. A função de
// release deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}

type chanPool struct {
	sem chan struct{}
}

// NewPool cria um semáforo baseado em channel com capacidade max.
func NewPool(max int) SlotPool {
	return &chanPool{sem: make(chan struct{}, max)}
}

func (p *chanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// AcquireWithin espera no máximo timeout por uma vaga; timeout <= 0 espera até
// o ctx encerrar. Pool nil sempre concede.
func AcquireWithin(ctx context.Context, pool SlotPool, timeout time.Duration) (func(), bool) {
	if pool == nil {
		return func() {}, true
	}
	if timeout <= 0 {
		return pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return pool.Acquire(acqCtx)
}
