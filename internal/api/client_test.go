package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/fieldops/internal/devapi"
	"github.com/kingrea/fieldops/internal/domain"
)

func newDevBackend(t *testing.T) (*devapi.Store, *Client) {
	t.Helper()
	seed, err := devapi.DefaultSeed()
	require.NoError(t, err)
	store := devapi.NewStore()
	require.NoError(t, store.Apply(seed, time.Now()))
	srv := devapi.NewServer(devapi.Settings{}, devapi.WithStore(store))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return store, NewClient(WithBaseURL(ts.URL + "/"))
}

func TestClientReadsReferenceData(t *testing.T) {
	_, client := newDevBackend(t)
	ctx := context.Background()

	roles, err := client.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 6)

	items, err := client.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 6)
	require.NotNil(t, items[0].TotalStock)

	workers, err := client.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 20)
	assert.Equal(t, "Berlin Central Warehouse", workers[0].BranchName())

	worker, err := client.GetWorker(ctx, workers[0].WorkerID)
	require.NoError(t, err)
	assert.Equal(t, workers[0].DisplayName(), worker.DisplayName())

	jobs, err := client.ListWorkerJobs(ctx, workers[0].WorkerID)
	require.NoError(t, err)
	require.NotEmpty(t, jobs)
	assert.Contains(t, jobs[0].WorkerNames(), "Alice Johnson")

	item, err := client.GetItem(ctx, items[0].ItemID)
	require.NoError(t, err)
	assert.Equal(t, items[0].ItemName, item.ItemName)

	itemJobs, err := client.ListItemJobs(ctx, items[0].ItemID)
	require.NoError(t, err)
	assert.NotEmpty(t, itemJobs)
}

func TestClientJobRoundTrip(t *testing.T) {
	store, client := newDevBackend(t)
	ctx := context.Background()
	role := store.ListRoles()[0]
	item := store.ListItems()[1]

	start := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	created, err := client.CreateJob(ctx, domain.JobCreate{
		JobName:       "Meter Swap",
		Latitude:      52.5,
		Longitude:     13.4,
		StartDatetime: domain.NewTimestamp(start),
		EndDatetime:   domain.NewTimestamp(start.Add(time.Hour)),
		RoleIDs:       []string{role.RoleID},
		Items:         []domain.JobItemRequest{{ItemID: item.ItemID, RequiredQuantity: 2}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.JobID)
	assert.False(t, created.IsAssigned())

	fetched, err := client.GetJob(ctx, created.JobID)
	require.NoError(t, err)
	got, ok := fetched.Start()
	require.True(t, ok)
	assert.True(t, got.Equal(start))
	require.Len(t, fetched.ItemLinks, 1)
	assert.Equal(t, 2, fetched.ItemLinks[0].Quantity())

	updated, err := client.UpdateJob(ctx, created.JobID, domain.JobCreate{
		JobName:   "Meter Swap",
		Latitude:  52.5,
		Longitude: 13.4,
		WorkerIDs: []string{store.ListWorkers()[2].WorkerID},
	})
	require.NoError(t, err)
	assert.True(t, updated.IsAssigned())
	assert.Empty(t, updated.ItemLinks)

	require.NoError(t, client.DeleteJob(ctx, created.JobID))
	_, err = client.GetJob(ctx, created.JobID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Job not found", apiErr.Message)
	assert.Equal(t, http.MethodGet, apiErr.Method)
}

func TestClientCreatesReferenceRecords(t *testing.T) {
	_, client := newDevBackend(t)
	ctx := context.Background()

	item, err := client.CreateItem(ctx, domain.ItemCreate{ItemName: "Cable Drum"})
	require.NoError(t, err)
	assert.Equal(t, "Cable Drum", item.ItemName)

	role, err := client.CreateRole(ctx, domain.RoleCreate{RoleName: "Rigger"})
	require.NoError(t, err)
	assert.NotEmpty(t, role.RoleID)
}

func TestClientValidatesBeforeSending(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	client := NewClient(WithBaseURL(ts.URL))
	ctx := context.Background()

	_, err := client.CreateJob(ctx, domain.JobCreate{Latitude: 123})
	assert.Error(t, err)
	_, err = client.UpdateJob(ctx, "job-1", domain.JobCreate{
		Items: []domain.JobItemRequest{{ItemID: "i1", RequiredQuantity: 0}},
	})
	assert.Error(t, err)
	_, err = client.CreateRole(ctx, domain.RoleCreate{})
	assert.Error(t, err)
	_, err = client.CreateItem(ctx, domain.ItemCreate{ItemName: " "})
	assert.Error(t, err)
	assert.Zero(t, calls)
}

func TestClientLeavesScheduleRulesToBackend(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"end_datetime precedes start_datetime"}`))
	}))
	t.Cleanup(ts.Close)
	client := NewClient(WithBaseURL(ts.URL))

	start := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	_, err := client.CreateJob(context.Background(), domain.JobCreate{
		Latitude:      52.52,
		Longitude:     13.40,
		StartDatetime: domain.NewTimestamp(start),
		EndDatetime:   domain.NewTimestamp(start.Add(-time.Hour)),
		RoleIDs:       []string{"r1"},
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestClientSendsRequestIDAndMapsErrors(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get(RequestIDHeader))
		mu.Unlock()
		switch r.URL.Path {
		case "/jobs":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"database unavailable"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}
	}))
	t.Cleanup(ts.Close)
	client := NewClient(WithBaseURL(ts.URL))
	ctx := context.Background()

	_, err := client.ListJobs(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "database unavailable", apiErr.Message)
	assert.False(t, IsNotFound(err))

	_, err = client.ListRoles(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.NotEmpty(t, seen[0])
	assert.NotEqual(t, seen[0], seen[1])
}

func TestClientHonoursContextCancellation(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		ts.Close()
	})
	client := NewClient(WithBaseURL(ts.URL), WithTimeout(5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ListJobs(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestErrorMessageFallsBackToStatus(t *testing.T) {
	assert.Equal(t, "500 Internal Server Error", errorMessage(nil, "500 Internal Server Error"))
	assert.Equal(t, `[{"loc":["body"]}]`, errorMessage([]byte(`{"detail":[{"loc":["body"]}]}`), "422"))
	assert.Equal(t, "boom", errorMessage([]byte(`{"error":"boom"}`), "500"))
}
