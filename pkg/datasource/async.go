package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/panics"
)

// SelectAsync validates and checks the cache synchronously, then fetches on
// a goroutine. Normalization and caching complete before callback runs. Only
// one fetch may be pending at a time.
func (p *Pipeline) SelectAsync(ctx context.Context, args *SelectArguments, callback func(*Result, error)) error {
	if callback == nil {
		return errors.New("datasource: callback is nil")
	}
	if !p.pending.CompareAndSwap(false, true) {
		return ErrFetchPending
	}

	sel, err := p.prepare(ctx, args)
	if err != nil {
		p.pending.Store(false)
		_, err = p.finish(ctx, sel, nil, false, err)
		return err
	}
	if result, hit, err := p.fromCache(ctx, sel); err != nil || hit {
		p.pending.Store(false)
		callback(p.finish(ctx, sel, result, true, err))
		return nil
	}
	if !p.notifySelecting(sel, false) {
		p.pending.Store(false)
		callback(p.finish(ctx, sel, nil, false, nil))
		return nil
	}

	p.wg.Go(func() {
		var raw any
		var execErr error
		var pc panics.Catcher
		pc.Try(func() {
			raw, execErr = p.execute(ctx, sel)
		})
		if recovered := pc.Recovered(); recovered != nil {
			execErr = fmt.Errorf("datasource: fetch panicked: %w", recovered.AsError())
		}
		result, err := p.complete(ctx, sel, raw, execErr)
		result, err = p.finish(ctx, sel, result, false, err)
		p.pending.Store(false)
		callback(result, err)
	})
	return nil
}

// Pending reports whether a fetch is running.
func (p *Pipeline) Pending() bool {
	return p.pending.Load()
}

// Wait blocks until every asynchronous fetch has delivered its callback.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
