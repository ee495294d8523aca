package tui

import (
	"context"

	"github.com/kingrea/fieldops/internal/domain"
	"github.com/kingrea/fieldops/internal/jobform"
	"github.com/kingrea/fieldops/internal/places"
)

// Backend is the REST surface the screens read and write. *api.Client
// satisfies it.
type Backend interface {
	jobform.Store
	ListJobs(ctx context.Context) ([]domain.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
	ListWorkers(ctx context.Context) ([]domain.Worker, error)
	GetWorker(ctx context.Context, workerID string) (domain.Worker, error)
	ListWorkerJobs(ctx context.Context, workerID string) ([]domain.Job, error)
	GetItem(ctx context.Context, itemID string) (domain.Item, error)
	ListItemJobs(ctx context.Context, itemID string) ([]domain.Job, error)
}

// PlaceFinder is the address autocomplete provider behind the form's
// location field. *places.Client satisfies it.
type PlaceFinder interface {
	Enabled() bool
	Autocomplete(ctx context.Context, input string) ([]places.Prediction, error)
	Details(ctx context.Context, placeID string) (places.Place, error)
}
