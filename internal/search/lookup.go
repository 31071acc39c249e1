package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/placesearch/internal/errors"
	"github.com/Aman-CERP/placesearch/pkg/place"
	"github.com/Aman-CERP/placesearch/pkg/provider"
)

// Lookup resolves one place from its provider-qualified ID through the
// owning provider, under the configured provider timeout.
//
// Malformed IDs and sources without details support are validation
// errors; provider failures are normalized to the failure taxonomy.
func (o *Orchestrator) Lookup(ctx context.Context, id string) (place.Place, error) {
	src, nativeID, err := place.SplitID(id)
	if err != nil {
		return place.Place{}, errors.ValidationError(err.Error(), err).WithDetail("id", id)
	}

	dp, err := o.registry.Details(src)
	if err != nil {
		code := errors.ErrCodeInvalidInput
		if stderrors.Is(err, place.ErrUnknownSource) {
			code = errors.ErrCodeUnknownProvider
		}
		return place.Place{}, errors.New(code, err.Error(), err).WithDetail("id", id)
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.ProviderTimeout)
	defer cancel()

	p, err := o.lookup(ctx, src, dp, nativeID)
	if err != nil {
		if stderrors.Is(err, errors.ErrPlaceNotFound) {
			return place.Place{}, err
		}
		failure := errors.AsProviderFailure(string(src), err)
		o.logger.Warn("lookup_failed", append(errors.FormatForLog(failure), slog.String("id", id))...)
		return place.Place{}, failure
	}

	if p.Source == "" {
		p.Source = src
	}
	if p.ID == "" {
		p.ID = place.QualifiedID(src, nativeID)
	}
	return p, nil
}

// lookup runs dp in its own goroutine so a provider that ignores its
// context is abandoned at the deadline, as in Search.
func (o *Orchestrator) lookup(ctx context.Context, src place.Source, dp provider.DetailProvider, nativeID string) (place.Place, error) {
	fn := func() (place.Place, error) {
		return dp.Lookup(ctx, nativeID)
	}

	type outcome struct {
		p   place.Place
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		var r outcome
		if cb, ok := o.breakers[src]; ok {
			r.p, r.err = errors.CircuitExecute(cb, fn)
		} else {
			r.p, r.err = fn()
		}
		done <- r
	}()

	select {
	case r := <-done:
		// Report errors caused by the deadline as the deadline itself.
		if r.err != nil && ctx.Err() != nil && !stderrors.Is(r.err, ctx.Err()) {
			return place.Place{}, fmt.Errorf("%w: %v", ctx.Err(), r.err)
		}
		return r.p, r.err
	case <-ctx.Done():
		return place.Place{}, ctx.Err()
	}
}
