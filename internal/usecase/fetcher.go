package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/internal/domain/repository"
	"access-reconcile-service/pkg/logger"
)

// PageError is the failure that ended a pagination stream
type PageError struct {
	Stream entity.Stream
	Page   int
	Err    error
}

// Error implements the error interface
func (e *PageError) Error() string {
	return fmt.Sprintf("lock %d (%s) %s page %d: %v", e.Stream.Lock.ID, e.Stream.Lock.Name, e.Stream.Kind, e.Page, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PageError) Unwrap() error {
	return e.Err
}

// Reason classifies the failure for metrics and reports
func (e *PageError) Reason() string {
	var terr *entity.TransportError
	switch {
	case errors.As(e.Err, &terr) && terr.Timeout:
		return "timeout"
	case errors.Is(e.Err, entity.ErrProvider):
		return "provider"
	case errors.Is(e.Err, context.Canceled):
		return "canceled"
	default:
		return "transport"
	}
}

// Fetcher drives the paginated list endpoints of the lock API.
//
// A page shorter than the page size is taken as the last page. This relies
// on the provider never returning a short page before the end of a list.
type Fetcher struct {
	api      repository.LockAPI
	pageSize int
	logger   logger.Logger
}

// NewFetcher creates a new fetcher
func NewFetcher(api repository.LockAPI, pageSize int, logger logger.Logger) *Fetcher {
	return &Fetcher{
		api:      api,
		pageSize: pageSize,
		logger:   logger,
	}
}

// PageSize returns the page size requested from the provider
func (f *Fetcher) PageSize() int {
	return f.pageSize
}

// FetchAll returns the grants of one stream as a lazy sequence. Every range
// over the sequence pulls again from page 1. Pages are requested in order;
// the sequence ends after an empty page, a short page, or the first failure,
// which is yielded once as a *PageError.
func (f *Fetcher) FetchAll(ctx context.Context, stream entity.Stream) iter.Seq2[entity.RawGrant, error] {
	return func(yield func(entity.RawGrant, error) bool) {
		for pageNo := 1; ; pageNo++ {
			if err := ctx.Err(); err != nil {
				yield(entity.RawGrant{}, &PageError{Stream: stream, Page: pageNo, Err: err})
				return
			}

			page, err := f.api.FetchPage(ctx, stream.Kind, stream.Lock.ID, pageNo, f.pageSize)
			if err != nil {
				yield(entity.RawGrant{}, &PageError{Stream: stream, Page: pageNo, Err: err})
				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}

			f.logger.Debug("Fetched page",
				"lockId", stream.Lock.ID,
				"kind", stream.Kind,
				"page", pageNo,
				"items", len(page.Items))

			if len(page.Items) == 0 || len(page.Items) < f.pageSize {
				return
			}
		}
	}
}

// StreamResult is everything one stream produced: its grants in arrival
// order and, when it stopped early, the failure
type StreamResult struct {
	Stream  entity.Stream
	Items   []entity.RawGrant
	Failure *PageError
}

// Collect drains one stream into its own accumulator. Failures are kept on
// the result, never returned, so other streams are unaffected.
func (f *Fetcher) Collect(ctx context.Context, stream entity.Stream) StreamResult {
	result := StreamResult{Stream: stream}
	for item, err := range f.FetchAll(ctx, stream) {
		if err != nil {
			var perr *PageError
			if !errors.As(err, &perr) {
				perr = &PageError{Stream: stream, Err: err}
			}
			result.Failure = perr
			f.logger.Error("Stopped fetching stream",
				"lockId", stream.Lock.ID,
				"lockName", stream.Lock.Name,
				"kind", stream.Kind,
				"page", perr.Page,
				"reason", perr.Reason(),
				"error", perr.Err)
			break
		}
		result.Items = append(result.Items, item)
	}

	f.logger.Info("Fetched stream",
		"lockId", stream.Lock.ID,
		"lockName", stream.Lock.Name,
		"kind", stream.Kind,
		"items", len(result.Items),
		"failed", result.Failure != nil)

	return result
}
