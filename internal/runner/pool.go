package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Pacer spaces iterations at a fixed rate using a leaky bucket: each call
// to Wait returns when the next iteration is due. Iterations that fall
// behind schedule start at once without building up a burst.
// Pacer is safe for concurrent use.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewPacer creates a Pacer for perSecond iterations per second. A rate of
// zero or less disables pacing.
func NewPacer(perSecond float64) *Pacer {
	if perSecond <= 0 {
		return nil
	}
	return &Pacer{interval: time.Duration(float64(time.Second) / perSecond)}
}

// reserve returns when the caller may start and books the following slot.
func (p *Pacer) reserve() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.next.Before(now) {
		p.next = now
	}
	slot := p.next
	p.next = slot.Add(p.interval)
	return slot
}

// Wait blocks until the next slot or until ctx is done. A nil Pacer never
// waits.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	wait := time.Until(p.reserve())
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Iterate calls fn for iterations 1 through n on up to workers goroutines,
// each iteration gated by pacer. The first error cancels the remaining
// iterations and is returned.
func Iterate(ctx context.Context, n, workers int, pacer *Pacer, fn func(ctx context.Context, iteration int) error) error {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		claimed  atomic.Int64
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(claimed.Add(1))
				if i > n {
					return
				}
				if err := pacer.Wait(ctx); err != nil {
					fail(err)
					return
				}
				if err := fn(ctx, i); err != nil {
					fail(err)
					return
				}
			}
		}()
	}

	wg.Wait()
	return firstErr
}
