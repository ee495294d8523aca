// Package dashboard derives the operations overview from the job and worker
// lists: upcoming work, assignment status and fleet utilisation.
package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/kingrea/fieldops/internal/domain"
)

// UpcomingLimit caps the upcoming-jobs list.
const UpcomingLimit = 3

// Summary is the computed dashboard state.
type Summary struct {
	// Upcoming holds the next jobs starting after now, earliest first.
	Upcoming      []domain.Job
	TotalJobs     int
	Unassigned    int
	ActiveWorkers int
	TotalWorkers  int
}

// Summarize computes the overview at the given instant.
func Summarize(jobs []domain.Job, workers []domain.Worker, now time.Time) Summary {
	s := Summary{TotalJobs: len(jobs), TotalWorkers: len(workers)}
	active := make(map[string]struct{})
	for _, job := range jobs {
		if !job.IsAssigned() {
			s.Unassigned++
		}
		for _, w := range job.Workers {
			active[w.WorkerID] = struct{}{}
		}
		if start, ok := job.Start(); ok && start.After(now) {
			s.Upcoming = append(s.Upcoming, job)
		}
	}
	s.ActiveWorkers = len(active)
	sort.SliceStable(s.Upcoming, func(i, j int) bool {
		a, _ := s.Upcoming[i].Start()
		b, _ := s.Upcoming[j].Start()
		return a.Before(b)
	})
	if len(s.Upcoming) > UpcomingLimit {
		s.Upcoming = s.Upcoming[:UpcomingLimit]
	}
	return s
}

// AllAssigned is true when there is at least one job and every job has a
// worker.
func (s Summary) AllAssigned() bool {
	return s.TotalJobs > 0 && s.Unassigned == 0
}

// Fleet formats active over total workers, e.g. "12/15".
func (s Summary) Fleet() string {
	return fmt.Sprintf("%d/%d", s.ActiveWorkers, s.TotalWorkers)
}

// StatusLabel is the assignment chip text.
func (s Summary) StatusLabel() string {
	if s.AllAssigned() {
		return "All Jobs Assigned"
	}
	if s.Unassigned == 1 {
		return "1 Job Pending"
	}
	return fmt.Sprintf("%d Jobs Pending", s.Unassigned)
}
