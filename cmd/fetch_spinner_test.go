package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/offline-session-cli/internal/application"
	"github.com/bnema/offline-session-cli/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSpinnerLabelFollowsSessionState(t *testing.T) {
	state := application.SessionAuthenticated
	model := newListSpinnerModel("items", func() application.SessionState { return state }, nil)

	assert.Contains(t, model.View(), "Fetching items...")

	state = application.SessionRefreshing
	assert.Contains(t, model.View(), "Refreshing session...")
}

func TestListSpinnerSummarizesRemoteFetch(t *testing.T) {
	model := newListSpinnerModel("items", nil, nil)

	updated, cmd := model.Update(listFetchedMsg{
		result:  application.FetchResult{Records: []domain.Record{{ID: "1"}, {ID: "2"}}, Source: application.SourceRemote},
		elapsed: 120 * time.Millisecond,
	})

	require.NotNil(t, cmd)
	assert.Contains(t, updated.View(), "2 records from remote in 120ms")
}

func TestListSpinnerSummarizesCacheFallback(t *testing.T) {
	model := newListSpinnerModel("items", nil, nil)

	updated, _ := model.Update(listFetchedMsg{
		result: application.FetchResult{
			Records: []domain.Record{{ID: "1"}},
			Source:  application.SourceCache,
			Failure: &application.RemoteFailure{Reason: application.FailureTimeout},
		},
		elapsed: 2 * time.Second,
	})

	assert.Contains(t, updated.View(), "1 cached record after 2s (timeout)")
}

func TestListSpinnerClearsOnError(t *testing.T) {
	model := newListSpinnerModel("items", nil, nil)

	updated, _ := model.Update(listFetchedMsg{err: context.Canceled})

	assert.Empty(t, updated.View())
}

func TestRunListSpinnerReturnsFetchResult(t *testing.T) {
	out := &bytes.Buffer{}
	want := application.FetchResult{Records: []domain.Record{{ID: "1", Title: "First"}}, Source: application.SourceRemote}

	got, err := runListSpinner(context.Background(), out, "items", nil, func(context.Context) (application.FetchResult, error) {
		return want, nil
	})

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRunListSpinnerReturnsFetchError(t *testing.T) {
	fetchErr := errors.New("invalid collection")

	_, err := runListSpinner(context.Background(), &bytes.Buffer{}, "items", nil, func(context.Context) (application.FetchResult, error) {
		return application.FetchResult{}, fetchErr
	})

	require.ErrorIs(t, err, fetchErr)
}

var _ tea.Model = listSpinnerModel{}
