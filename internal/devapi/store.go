package devapi

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kingrea/fieldops/internal/domain"
)

type workerRecord struct {
	worker  domain.Worker
	roleIDs []string
}

type jobRecord struct {
	job       domain.Job
	roleIDs   []string
	workerIDs []string
	items     []domain.JobItemRequest
}

// Store is an in-memory backend holding the same relations the REST API
// exposes. Reads return fully expanded records (roles, workers, item links).
type Store struct {
	mu sync.RWMutex

	newID func() string

	branches map[string]domain.Branch
	roles    map[string]domain.Role
	items    map[string]domain.Item
	stock    map[string]int
	workers  map[string]*workerRecord
	jobs     map[string]*jobRecord

	roleOrder   []string
	itemOrder   []string
	workerOrder []string
	jobOrder    []string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		newID:    func() string { return uuid.New().String() },
		branches: map[string]domain.Branch{},
		roles:    map[string]domain.Role{},
		items:    map[string]domain.Item{},
		stock:    map[string]int{},
		workers:  map[string]*workerRecord{},
		jobs:     map[string]*jobRecord{},
	}
}

// ListJobs returns every job in insertion order.
func (s *Store) ListJobs() []domain.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]domain.Job, 0, len(s.jobOrder))
	for _, id := range s.jobOrder {
		jobs = append(jobs, s.expandJob(s.jobs[id]))
	}
	return jobs
}

// GetJob returns one expanded job.
func (s *Store) GetJob(id string) (domain.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return s.expandJob(rec), true
}

// CreateJob stores a new job. Unknown role, worker and item ids are dropped,
// matching the backend's filter-by-id behaviour.
func (s *Store) CreateJob(payload domain.JobCreate) domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &jobRecord{job: domain.Job{JobID: s.newID()}}
	s.applyJobPayload(rec, payload)
	s.jobs[rec.job.JobID] = rec
	s.jobOrder = append(s.jobOrder, rec.job.JobID)
	return s.expandJob(rec)
}

// UpdateJob replaces every field of an existing job.
func (s *Store) UpdateJob(id string, payload domain.JobCreate) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	s.applyJobPayload(rec, payload)
	return s.expandJob(rec), true
}

// DeleteJob removes a job.
func (s *Store) DeleteJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	s.jobOrder = removeID(s.jobOrder, id)
	return true
}

// ListWorkers returns every worker with branch and roles.
func (s *Store) ListWorkers() []domain.Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	workers := make([]domain.Worker, 0, len(s.workerOrder))
	for _, id := range s.workerOrder {
		workers = append(workers, s.expandWorker(s.workers[id]))
	}
	return workers
}

// GetWorker returns one worker.
func (s *Store) GetWorker(id string) (domain.Worker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.workers[id]
	if !ok {
		return domain.Worker{}, false
	}
	return s.expandWorker(rec), true
}

// WorkerJobs lists the jobs a worker is assigned to.
func (s *Store) WorkerJobs(workerID string) ([]domain.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.workers[workerID]; !ok {
		return nil, false
	}
	jobs := []domain.Job{}
	for _, id := range s.jobOrder {
		rec := s.jobs[id]
		if contains(rec.workerIDs, workerID) {
			jobs = append(jobs, s.expandJob(rec))
		}
	}
	return jobs, true
}

// ListRoles returns every role.
func (s *Store) ListRoles() []domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make([]domain.Role, 0, len(s.roleOrder))
	for _, id := range s.roleOrder {
		roles = append(roles, s.roles[id])
	}
	return roles
}

// CreateRole stores a new role.
func (s *Store) CreateRole(payload domain.RoleCreate) domain.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRole(payload.RoleName, payload.RoleDescription)
}

// ListItems returns every item with its total stock.
func (s *Store) ListItems() []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]domain.Item, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		items = append(items, s.expandItem(id))
	}
	return items
}

// GetItem returns one item.
func (s *Store) GetItem(id string) (domain.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.items[id]; !ok {
		return domain.Item{}, false
	}
	return s.expandItem(id), true
}

// ItemJobs lists the jobs that require an item.
func (s *Store) ItemJobs(itemID string) ([]domain.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.items[itemID]; !ok {
		return nil, false
	}
	jobs := []domain.Job{}
	for _, id := range s.jobOrder {
		rec := s.jobs[id]
		for _, line := range rec.items {
			if line.ItemID == itemID {
				jobs = append(jobs, s.expandJob(rec))
				break
			}
		}
	}
	return jobs, true
}

// CreateItem stores a new item.
func (s *Store) CreateItem(payload domain.ItemCreate) domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := s.addItem(payload.ItemName, payload.ItemDescription, "")
	return s.expandItem(item.ItemID)
}

// Counts reports record totals, used by the health endpoint.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		"branches": len(s.branches),
		"roles":    len(s.roles),
		"items":    len(s.items),
		"workers":  len(s.workers),
		"jobs":     len(s.jobs),
	}
}

func (s *Store) addRole(name, description string) domain.Role {
	role := domain.Role{RoleID: s.newID(), RoleName: name, RoleDescription: description}
	s.roles[role.RoleID] = role
	s.roleOrder = append(s.roleOrder, role.RoleID)
	return role
}

func (s *Store) addItem(name, description, branchID string) domain.Item {
	item := domain.Item{ItemID: s.newID(), ItemName: name, ItemDescription: description, BranchID: branchID}
	s.items[item.ItemID] = item
	s.itemOrder = append(s.itemOrder, item.ItemID)
	return item
}

func (s *Store) addWorker(worker domain.Worker, roleIDs []string) domain.Worker {
	worker.WorkerID = s.newID()
	s.workers[worker.WorkerID] = &workerRecord{worker: worker, roleIDs: roleIDs}
	s.workerOrder = append(s.workerOrder, worker.WorkerID)
	return worker
}

func (s *Store) applyJobPayload(rec *jobRecord, p domain.JobCreate) {
	id := rec.job.JobID
	rec.job = domain.Job{
		JobID:          id,
		JobName:        p.JobName,
		JobDescription: p.JobDescription,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		Country:        p.Country,
		City:           p.City,
		HouseNumber:    p.HouseNumber,
		Street:         p.Street,
		PostalCode:     p.PostalCode,
		StartDatetime:  p.StartDatetime,
		EndDatetime:    p.EndDatetime,
	}
	rec.roleIDs = rec.roleIDs[:0]
	for _, roleID := range p.RoleIDs {
		if _, ok := s.roles[roleID]; ok && !contains(rec.roleIDs, roleID) {
			rec.roleIDs = append(rec.roleIDs, roleID)
		}
	}
	rec.workerIDs = rec.workerIDs[:0]
	for _, workerID := range p.WorkerIDs {
		if _, ok := s.workers[workerID]; ok && !contains(rec.workerIDs, workerID) {
			rec.workerIDs = append(rec.workerIDs, workerID)
		}
	}
	rec.items = rec.items[:0]
	seen := map[string]struct{}{}
	for _, line := range p.Items {
		if _, ok := s.items[line.ItemID]; !ok {
			continue
		}
		if _, dup := seen[line.ItemID]; dup {
			continue
		}
		seen[line.ItemID] = struct{}{}
		if line.RequiredQuantity < 1 {
			line.RequiredQuantity = 1
		}
		rec.items = append(rec.items, line)
	}
}

func (s *Store) expandJob(rec *jobRecord) domain.Job {
	job := rec.job
	job.Roles = make([]domain.Role, 0, len(rec.roleIDs))
	for _, id := range rec.roleIDs {
		job.Roles = append(job.Roles, s.roles[id])
	}
	job.Workers = make([]domain.Worker, 0, len(rec.workerIDs))
	for _, id := range rec.workerIDs {
		if w, ok := s.workers[id]; ok {
			job.Workers = append(job.Workers, s.expandWorker(w))
		}
	}
	job.ItemLinks = make([]domain.JobItemLink, 0, len(rec.items))
	for _, line := range rec.items {
		job.ItemLinks = append(job.ItemLinks, domain.JobItemLink{
			ItemID:           line.ItemID,
			RequiredQuantity: line.RequiredQuantity,
			Item:             s.expandItem(line.ItemID),
		})
	}
	return job
}

func (s *Store) expandWorker(rec *workerRecord) domain.Worker {
	worker := rec.worker
	if branch, ok := s.branches[worker.BranchID]; ok {
		b := branch
		worker.Branch = &b
	}
	worker.Roles = make([]domain.Role, 0, len(rec.roleIDs))
	for _, id := range rec.roleIDs {
		if role, ok := s.roles[id]; ok {
			worker.Roles = append(worker.Roles, role)
		}
	}
	return worker
}

func (s *Store) expandItem(id string) domain.Item {
	item := s.items[id]
	total := s.stock[id]
	item.TotalStock = &total
	return item
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func removeID(values []string, target string) []string {
	out := values[:0]
	for _, v := range values {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

func unknownRef(kind, key string) error {
	return fmt.Errorf("devapi: seed references unknown %s %q", kind, key)
}
