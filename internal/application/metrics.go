package application

import "github.com/bnema/offline-session-cli/internal/domain"

// Metrics receives sync and refresh outcomes. Constructors fall back to a
// no-op implementation when none is given.
type Metrics interface {
	ObserveFetch(collection domain.CollectionKey, source Source, reason FailureReason)
	ObserveRefresh(outcome RefreshOutcome)
}

type RefreshOutcome string

const (
	RefreshSucceeded        RefreshOutcome = "success"
	RefreshFailed           RefreshOutcome = "failure"
	RefreshNoRefreshToken   RefreshOutcome = "no_refresh_token"
	RefreshSessionDiscarded RefreshOutcome = "invalidated"
)

type noopMetrics struct{}

func (noopMetrics) ObserveFetch(domain.CollectionKey, Source, FailureReason) {}

func (noopMetrics) ObserveRefresh(RefreshOutcome) {}
