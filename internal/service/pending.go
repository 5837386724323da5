package service

import (
	"context"

	"converter-service/internal/entity"
)

// PendingConversion is a conversion running in the background.
type PendingConversion struct {
	done   chan struct{}
	cancel context.CancelFunc

	conv *entity.Conversion
	err  error
}

// ConvertAsync starts ConvertCurrency on its own goroutine, bounded by the
// configured conversion timeout. Cancelling ctx or calling Cancel stops it.
func (s *ConverterService) ConvertAsync(ctx context.Context, req entity.ConversionRequest) *PendingConversion {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ConvertTimeout)
	p := &PendingConversion{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(p.done)
		defer cancel()
		p.conv, p.err = s.ConvertCurrency(ctx, req)
	}()

	return p
}

func (p *PendingConversion) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the conversion finishes or ctx is done. Giving up on
// ctx does not cancel the conversion itself.
func (p *PendingConversion) Wait(ctx context.Context) (*entity.Conversion, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return p.conv, p.err
	}
}

// Result polls without blocking; finished is false while the conversion runs.
func (p *PendingConversion) Result() (conv *entity.Conversion, finished bool, err error) {
	select {
	case <-p.done:
		return p.conv, true, p.err
	default:
		return nil, false, nil
	}
}

func (p *PendingConversion) Cancel() {
	p.cancel()
}
