package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/bnema/offline-session-cli/internal/ports"
	"github.com/rs/zerolog"
)

const DefaultRemoteTimeout = 30 * time.Second

type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

type FailureReason string

const (
	FailureNone            FailureReason = ""
	FailureUnauthenticated FailureReason = "unauthenticated"
	FailureNetwork         FailureReason = "network"
	FailureTimeout         FailureReason = "timeout"
	FailureStatus          FailureReason = "status"
	FailureDecode          FailureReason = "decode"
)

// RemoteFailure describes why a remote call did not produce data.
type RemoteFailure struct {
	Reason     FailureReason
	StatusCode int
	Err        error
}

func (f *RemoteFailure) Error() string {
	switch {
	case f.Reason == FailureStatus:
		return fmt.Sprintf("remote returned status %d", f.StatusCode)
	case f.Err != nil:
		return fmt.Sprintf("remote %s failure: %v", f.Reason, f.Err)
	default:
		return fmt.Sprintf("remote %s failure", f.Reason)
	}
}

func (f *RemoteFailure) Unwrap() error {
	return f.Err
}

type FetchResult struct {
	Records []domain.Record
	Source  Source
	// Failure is set when the records come from the cache.
	Failure *RemoteFailure
}

type RecordResult struct {
	Record  domain.Record
	Source  Source
	Failure *RemoteFailure
}

// Authorizer yields the Authorization header value for remote calls.
type Authorizer interface {
	Authorize(ctx context.Context) (string, error)
}

type DataSyncOptions struct {
	Timeout time.Duration
	Metrics Metrics
}

// DataSyncCoordinator serves collections remote-first and falls back to the
// local cache when the remote cannot be used. Writes go to the remote only.
type DataSyncCoordinator struct {
	remote  ports.RemoteDataSource
	cache   ports.RecordCache
	auth    Authorizer
	clock   ports.Clock
	logger  zerolog.Logger
	timeout time.Duration
	metrics Metrics
}

func NewDataSyncCoordinator(remote ports.RemoteDataSource, cache ports.RecordCache, auth Authorizer, clock ports.Clock, logger zerolog.Logger, opts DataSyncOptions) *DataSyncCoordinator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRemoteTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}

	return &DataSyncCoordinator{
		remote:  remote,
		cache:   cache,
		auth:    auth,
		clock:   clock,
		logger:  logger,
		timeout: opts.Timeout,
		metrics: opts.Metrics,
	}
}

// FetchList returns the records of collection. On remote success the cache is
// replaced with them; on any remote failure the cached records are returned
// instead. The error is non-nil only for an invalid collection or when ctx
// ends.
func (c *DataSyncCoordinator) FetchList(ctx context.Context, collection domain.CollectionKey) (FetchResult, error) {
	if err := collection.Validate(); err != nil {
		return FetchResult{}, err
	}

	records, failure, err := c.fetchRemoteList(ctx, collection)
	if err != nil {
		return FetchResult{}, err
	}

	if failure == nil {
		cached := domain.NewCachedRecords(records, c.clock.Now())
		if err := c.cache.ReplaceAll(ctx, collection, cached); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return FetchResult{}, ctxErr
			}
			c.logger.Error().Err(err).Str("collection", string(collection)).Msg("update local cache")
		}

		c.metrics.ObserveFetch(collection, SourceRemote, FailureNone)
		return FetchResult{Records: records, Source: SourceRemote}, nil
	}

	c.logFailure(collection, failure)

	cached, err := c.cache.GetAll(ctx, collection)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return FetchResult{}, ctxErr
		}
		c.logger.Error().Err(err).Str("collection", string(collection)).Msg("read local cache")
		cached = nil
	}

	c.metrics.ObserveFetch(collection, SourceCache, failure.Reason)
	return FetchResult{
		Records: domain.RecordsFromCache(cached),
		Source:  SourceCache,
		Failure: failure,
	}, nil
}

func (c *DataSyncCoordinator) fetchRemoteList(ctx context.Context, collection domain.CollectionKey) ([]domain.Record, *RemoteFailure, error) {
	resp, failure, err := c.call(ctx, ports.Request{Method: http.MethodGet, Path: collectionPath(collection)})
	if err != nil || failure != nil {
		return nil, failure, err
	}

	var records []domain.Record
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, &RemoteFailure{Reason: FailureDecode, Err: err}, nil
	}
	if records == nil {
		records = []domain.Record{}
	}

	return records, nil, nil
}

// GetRecord fetches one record, falling back to the cached copy when the
// remote cannot be used. A remote 404 is final.
func (c *DataSyncCoordinator) GetRecord(ctx context.Context, collection domain.CollectionKey, id string) (RecordResult, error) {
	if err := collection.Validate(); err != nil {
		return RecordResult{}, err
	}
	if id == "" {
		return RecordResult{}, fmt.Errorf("%w: record id is required", domain.ErrValidation)
	}

	resp, failure, err := c.call(ctx, ports.Request{Method: http.MethodGet, Path: recordPath(collection, id)})
	if err != nil {
		return RecordResult{}, err
	}
	if failure == nil {
		var record domain.Record
		if err := json.Unmarshal(resp.Body, &record); err != nil {
			failure = &RemoteFailure{Reason: FailureDecode, Err: err}
		} else {
			return RecordResult{Record: record, Source: SourceRemote}, nil
		}
	}
	if failure.Reason == FailureStatus && failure.StatusCode == http.StatusNotFound {
		return RecordResult{}, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrRecordNotFound)
	}

	c.logFailure(collection, failure)

	cached, err := c.cache.GetAll(ctx, collection)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return RecordResult{}, ctxErr
		}
		c.logger.Error().Err(err).Str("collection", string(collection)).Msg("read local cache")
	}
	for _, entry := range cached {
		if entry.ID == id {
			return RecordResult{Record: entry.Record, Source: SourceCache, Failure: failure}, nil
		}
	}

	return RecordResult{}, fmt.Errorf("%s/%s: %w: %w", collection, id, domain.ErrRecordNotFound, failure)
}

// CreateRecord posts record to the remote and returns the stored version.
func (c *DataSyncCoordinator) CreateRecord(ctx context.Context, collection domain.CollectionKey, record domain.Record) (domain.Record, error) {
	if err := collection.Validate(); err != nil {
		return domain.Record{}, err
	}
	if err := record.Validate(); err != nil {
		return domain.Record{}, err
	}

	return c.writeRecord(ctx, http.MethodPost, collectionPath(collection), record)
}

// UpdateRecord replaces the record with record.ID on the remote.
func (c *DataSyncCoordinator) UpdateRecord(ctx context.Context, collection domain.CollectionKey, record domain.Record) (domain.Record, error) {
	if err := collection.Validate(); err != nil {
		return domain.Record{}, err
	}
	if record.ID == "" {
		return domain.Record{}, fmt.Errorf("%w: record id is required", domain.ErrValidation)
	}
	if err := record.Validate(); err != nil {
		return domain.Record{}, err
	}

	return c.writeRecord(ctx, http.MethodPut, recordPath(collection, record.ID), record)
}

func (c *DataSyncCoordinator) DeleteRecord(ctx context.Context, collection domain.CollectionKey, id string) error {
	if err := collection.Validate(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrValidation)
	}

	_, failure, err := c.call(ctx, ports.Request{Method: http.MethodDelete, Path: recordPath(collection, id)})
	if err != nil {
		return err
	}
	if failure != nil {
		if failure.Reason == FailureStatus && failure.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s/%s: %w", collection, id, domain.ErrRecordNotFound)
		}
		return fmt.Errorf("delete %s/%s: %w", collection, id, failure)
	}

	return nil
}

func (c *DataSyncCoordinator) writeRecord(ctx context.Context, method string, path string, record domain.Record) (domain.Record, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return domain.Record{}, fmt.Errorf("encode record: %w", err)
	}

	resp, failure, err := c.call(ctx, ports.Request{Method: method, Path: path, Body: body})
	if err != nil {
		return domain.Record{}, err
	}
	if failure != nil {
		return domain.Record{}, fmt.Errorf("%s %s: %w", method, path, failure)
	}
	if len(resp.Body) == 0 {
		return record, nil
	}

	var stored domain.Record
	if err := json.Unmarshal(resp.Body, &stored); err != nil {
		return domain.Record{}, fmt.Errorf("%s %s: %w", method, path, &RemoteFailure{Reason: FailureDecode, Err: err})
	}

	return stored, nil
}

// call runs one authorized request under the remote timeout. The timeout
// covers the token refresh Authorize may perform as well as the request. A
// non-nil error means ctx ended; every other problem is reported as a
// RemoteFailure.
func (c *DataSyncCoordinator) call(ctx context.Context, req ports.Request) (ports.Response, *RemoteFailure, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	authorization, err := c.auth.Authorize(callCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ports.Response{}, nil, ctxErr
		}
		if timedOut(callCtx, err) {
			return ports.Response{}, &RemoteFailure{Reason: FailureTimeout, Err: err}, nil
		}
		return ports.Response{}, &RemoteFailure{Reason: FailureUnauthenticated, Err: err}, nil
	}
	req.Authorization = authorization

	resp, err := c.remote.Do(callCtx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ports.Response{}, nil, ctxErr
		}
		if timedOut(callCtx, err) {
			return ports.Response{}, &RemoteFailure{Reason: FailureTimeout, Err: err}, nil
		}
		return ports.Response{}, &RemoteFailure{Reason: FailureNetwork, Err: err}, nil
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp, &RemoteFailure{Reason: FailureStatus, StatusCode: resp.StatusCode}, nil
	}

	return resp, nil, nil
}

func timedOut(callCtx context.Context, err error) bool {
	return errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}

func (c *DataSyncCoordinator) logFailure(collection domain.CollectionKey, failure *RemoteFailure) {
	event := c.logger.Warn().Str("collection", string(collection)).Str("reason", string(failure.Reason))
	if failure.StatusCode != 0 {
		event = event.Int("status", failure.StatusCode)
	}
	if failure.Err != nil {
		event = event.Err(failure.Err)
	}

	switch failure.Reason {
	case FailureTimeout:
		event.Dur("timeout", c.timeout).Msg("remote timed out; serving cached records")
	case FailureUnauthenticated:
		event.Msg("no usable session; serving cached records")
	default:
		event.Msg("remote unavailable; serving cached records")
	}
}

func collectionPath(collection domain.CollectionKey) string {
	return "/" + string(collection)
}

func recordPath(collection domain.CollectionKey, id string) string {
	return "/" + string(collection) + "/" + url.PathEscape(id)
}
