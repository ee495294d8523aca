package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kingrea/fieldops/internal/domain"
)

func escape(id string) string {
	return url.PathEscape(id)
}

// ListJobs fetches every job.
func (c *Client) ListJobs(ctx context.Context) ([]domain.Job, error) {
	var jobs []domain.Job
	if err := c.do(ctx, http.MethodGet, "/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob fetches a single job.
func (c *Client) GetJob(ctx context.Context, jobID string) (domain.Job, error) {
	var job domain.Job
	err := c.do(ctx, http.MethodGet, "/jobs/"+escape(jobID), nil, &job)
	return job, err
}

// CreateJob posts a new job. Malformed payloads are rejected before sending;
// field ordering rules are left to the form and the backend.
func (c *Client) CreateJob(ctx context.Context, payload domain.JobCreate) (domain.Job, error) {
	payload.Normalize()
	if err := payload.CheckShape(); err != nil {
		return domain.Job{}, err
	}
	var job domain.Job
	err := c.do(ctx, http.MethodPost, "/jobs", payload, &job)
	return job, err
}

// UpdateJob replaces a job wholesale.
func (c *Client) UpdateJob(ctx context.Context, jobID string, payload domain.JobCreate) (domain.Job, error) {
	payload.Normalize()
	if err := payload.CheckShape(); err != nil {
		return domain.Job{}, err
	}
	var job domain.Job
	err := c.do(ctx, http.MethodPut, "/jobs/"+escape(jobID), payload, &job)
	return job, err
}

// DeleteJob removes a job.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/jobs/"+escape(jobID), nil, nil)
}

// ListWorkers fetches every worker with branch and roles.
func (c *Client) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	var workers []domain.Worker
	if err := c.do(ctx, http.MethodGet, "/workers", nil, &workers); err != nil {
		return nil, err
	}
	return workers, nil
}

// GetWorker fetches a single worker.
func (c *Client) GetWorker(ctx context.Context, workerID string) (domain.Worker, error) {
	var worker domain.Worker
	err := c.do(ctx, http.MethodGet, "/workers/"+escape(workerID), nil, &worker)
	return worker, err
}

// ListWorkerJobs fetches the jobs a worker is assigned to. Note the singular
// "worker" path segment.
func (c *Client) ListWorkerJobs(ctx context.Context, workerID string) ([]domain.Job, error) {
	var jobs []domain.Job
	if err := c.do(ctx, http.MethodGet, "/worker/"+escape(workerID)+"/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListItems fetches every item.
func (c *Client) ListItems(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	if err := c.do(ctx, http.MethodGet, "/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem fetches a single item.
func (c *Client) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	var item domain.Item
	err := c.do(ctx, http.MethodGet, "/items/"+escape(itemID), nil, &item)
	return item, err
}

// ListItemJobs fetches the jobs that require an item.
func (c *Client) ListItemJobs(ctx context.Context, itemID string) ([]domain.Job, error) {
	var jobs []domain.Job
	if err := c.do(ctx, http.MethodGet, "/item/"+escape(itemID)+"/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// CreateItem posts a new item reference.
func (c *Client) CreateItem(ctx context.Context, payload domain.ItemCreate) (domain.Item, error) {
	if err := payload.Validate(); err != nil {
		return domain.Item{}, err
	}
	var item domain.Item
	err := c.do(ctx, http.MethodPost, "/items", payload, &item)
	return item, err
}

// ListRoles fetches every role.
func (c *Client) ListRoles(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	if err := c.do(ctx, http.MethodGet, "/roles", nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// CreateRole posts a new role reference.
func (c *Client) CreateRole(ctx context.Context, payload domain.RoleCreate) (domain.Role, error) {
	if err := payload.Validate(); err != nil {
		return domain.Role{}, err
	}
	var role domain.Role
	err := c.do(ctx, http.MethodPost, "/roles", payload, &role)
	return role, err
}
