package devapi

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/fieldops/internal/domain"
)

//go:embed seed/default.yaml
var defaultSeedYAML []byte

// Seed describes the records loaded into a fresh store. Records reference each
// other by key; ids are generated on load. Job times are relative to the load
// time so demo schedules always lie in the near future.
type Seed struct {
	Country  string       `yaml:"country" toml:"country" json:"country"`
	Branches []SeedBranch `yaml:"branches" toml:"branches" json:"branches"`
	Roles    []SeedRole   `yaml:"roles" toml:"roles" json:"roles"`
	Items    []SeedItem   `yaml:"items" toml:"items" json:"items"`
	Workers  []SeedWorker `yaml:"workers" toml:"workers" json:"workers"`
	Jobs     []SeedJob    `yaml:"jobs" toml:"jobs" json:"jobs"`
}

type SeedBranch struct {
	Key       string  `yaml:"key" toml:"key" json:"key"`
	Name      string  `yaml:"name" toml:"name" json:"name"`
	Latitude  float64 `yaml:"latitude" toml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" toml:"longitude" json:"longitude"`
}

type SeedRole struct {
	Key         string `yaml:"key" toml:"key" json:"key"`
	Name        string `yaml:"name" toml:"name" json:"name"`
	Description string `yaml:"description" toml:"description" json:"description"`
}

// SeedItem lists per-branch stock keyed by branch key.
type SeedItem struct {
	Key         string         `yaml:"key" toml:"key" json:"key"`
	Name        string         `yaml:"name" toml:"name" json:"name"`
	Description string         `yaml:"description" toml:"description" json:"description"`
	Branch      string         `yaml:"branch" toml:"branch" json:"branch"`
	Stock       map[string]int `yaml:"stock" toml:"stock" json:"stock"`
}

type SeedWorker struct {
	Key       string   `yaml:"key" toml:"key" json:"key"`
	FirstName string   `yaml:"first_name" toml:"first_name" json:"first_name"`
	LastName  string   `yaml:"last_name" toml:"last_name" json:"last_name"`
	Phone     string   `yaml:"phone" toml:"phone" json:"phone"`
	Branch    string   `yaml:"branch" toml:"branch" json:"branch"`
	Roles     []string `yaml:"roles" toml:"roles" json:"roles"`
}

type SeedJobItem struct {
	Item     string `yaml:"item" toml:"item" json:"item"`
	Quantity int    `yaml:"quantity" toml:"quantity" json:"quantity"`
}

type SeedJob struct {
	Name        string        `yaml:"name" toml:"name" json:"name"`
	Description string        `yaml:"description" toml:"description" json:"description"`
	Latitude    float64       `yaml:"latitude" toml:"latitude" json:"latitude"`
	Longitude   float64       `yaml:"longitude" toml:"longitude" json:"longitude"`
	Country     string        `yaml:"country" toml:"country" json:"country"`
	City        string        `yaml:"city" toml:"city" json:"city"`
	Street      string        `yaml:"street" toml:"street" json:"street"`
	HouseNumber string        `yaml:"house_number" toml:"house_number" json:"house_number"`
	PostalCode  string        `yaml:"postal_code" toml:"postal_code" json:"postal_code"`
	DayOffset   int           `yaml:"day_offset" toml:"day_offset" json:"day_offset"`
	Hour        int           `yaml:"hour" toml:"hour" json:"hour"`
	Duration    string        `yaml:"duration" toml:"duration" json:"duration"`
	Roles       []string      `yaml:"roles" toml:"roles" json:"roles"`
	Items       []SeedJobItem `yaml:"items" toml:"items" json:"items"`
	Workers     []string      `yaml:"workers" toml:"workers" json:"workers"`
}

// DefaultSeed returns the built-in Berlin/Brandenburg demo data.
func DefaultSeed() (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(defaultSeedYAML, &seed); err != nil {
		return Seed{}, fmt.Errorf("devapi: decode default seed: %w", err)
	}
	return seed, nil
}

// LoadSeed reads a seed file. The format is chosen by extension: .yaml/.yml,
// .toml or .json.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("devapi: read seed: %w", err)
	}
	var seed Seed
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &seed)
	case ".toml":
		err = toml.Unmarshal(data, &seed)
	case ".json":
		err = json.Unmarshal(data, &seed)
	default:
		return Seed{}, fmt.Errorf("devapi: unsupported seed format %q", ext)
	}
	if err != nil {
		return Seed{}, fmt.Errorf("devapi: decode seed %s: %w", filepath.Base(path), err)
	}
	return seed, nil
}

// Apply loads the seed into the store. Job start times are computed from now
// truncated to the hour. Apply is all-or-nothing: on error the store is left
// unchanged.
func (s *Store) Apply(seed Seed, now time.Time) error {
	staged := NewStore()
	staged.newID = s.newID
	if err := staged.apply(seed, now); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches = staged.branches
	s.roles = staged.roles
	s.items = staged.items
	s.stock = staged.stock
	s.workers = staged.workers
	s.jobs = staged.jobs
	s.roleOrder = staged.roleOrder
	s.itemOrder = staged.itemOrder
	s.workerOrder = staged.workerOrder
	s.jobOrder = staged.jobOrder
	return nil
}

func (s *Store) apply(seed Seed, now time.Time) error {
	branchIDs := map[string]string{}
	for _, b := range seed.Branches {
		lat, lng := b.Latitude, b.Longitude
		branch := domain.Branch{BranchID: s.newID(), BranchName: b.Name, Latitude: &lat, Longitude: &lng}
		s.branches[branch.BranchID] = branch
		branchIDs[b.Key] = branch.BranchID
	}

	roleIDs := map[string]string{}
	for _, r := range seed.Roles {
		roleIDs[r.Key] = s.addRole(r.Name, r.Description).RoleID
	}

	itemIDs := map[string]string{}
	for _, it := range seed.Items {
		branchID := ""
		if it.Branch != "" {
			id, ok := branchIDs[it.Branch]
			if !ok {
				return unknownRef("branch", it.Branch)
			}
			branchID = id
		}
		item := s.addItem(it.Name, it.Description, branchID)
		itemIDs[it.Key] = item.ItemID
		total := 0
		for branchKey, qty := range it.Stock {
			if _, ok := branchIDs[branchKey]; !ok {
				return unknownRef("branch", branchKey)
			}
			total += qty
		}
		s.stock[item.ItemID] = total
	}

	workerIDs := map[string]string{}
	for _, w := range seed.Workers {
		worker := domain.Worker{FirstName: w.FirstName, LastName: w.LastName, PhoneNumber: w.Phone}
		if w.Branch != "" {
			id, ok := branchIDs[w.Branch]
			if !ok {
				return unknownRef("branch", w.Branch)
			}
			worker.BranchID = id
		}
		roles, err := resolveKeys("role", w.Roles, roleIDs)
		if err != nil {
			return err
		}
		workerIDs[w.Key] = s.addWorker(worker, roles).WorkerID
	}

	base := now.Truncate(time.Hour)
	for _, j := range seed.Jobs {
		payload, err := seedJobPayload(j, seed.Country, base, roleIDs, itemIDs, workerIDs)
		if err != nil {
			return err
		}
		rec := &jobRecord{job: domain.Job{JobID: s.newID()}}
		s.applyJobPayload(rec, payload)
		s.jobs[rec.job.JobID] = rec
		s.jobOrder = append(s.jobOrder, rec.job.JobID)
	}
	return nil
}

func seedJobPayload(j SeedJob, country string, base time.Time, roleIDs, itemIDs, workerIDs map[string]string) (domain.JobCreate, error) {
	payload := domain.JobCreate{
		JobName:        j.Name,
		JobDescription: j.Description,
		Latitude:       j.Latitude,
		Longitude:      j.Longitude,
		Country:        firstNonEmpty(j.Country, country),
		City:           j.City,
		Street:         j.Street,
		HouseNumber:    j.HouseNumber,
		PostalCode:     j.PostalCode,
	}
	start := base.AddDate(0, 0, j.DayOffset)
	start = time.Date(start.Year(), start.Month(), start.Day(), j.Hour, 0, 0, 0, start.Location())
	payload.StartDatetime = domain.NewTimestamp(start)
	if strings.TrimSpace(j.Duration) != "" {
		d, err := time.ParseDuration(j.Duration)
		if err != nil {
			return domain.JobCreate{}, fmt.Errorf("devapi: job %q duration: %w", j.Name, err)
		}
		payload.EndDatetime = domain.NewTimestamp(start.Add(d))
	}
	var err error
	if payload.RoleIDs, err = resolveKeys("role", j.Roles, roleIDs); err != nil {
		return domain.JobCreate{}, err
	}
	if payload.WorkerIDs, err = resolveKeys("worker", j.Workers, workerIDs); err != nil {
		return domain.JobCreate{}, err
	}
	for _, line := range j.Items {
		id, ok := itemIDs[line.Item]
		if !ok {
			return domain.JobCreate{}, unknownRef("item", line.Item)
		}
		payload.Items = append(payload.Items, domain.JobItemRequest{ItemID: id, RequiredQuantity: line.Quantity})
	}
	return payload, nil
}

func resolveKeys(kind string, keys []string, ids map[string]string) ([]string, error) {
	resolved := make([]string, 0, len(keys))
	for _, key := range keys {
		id, ok := ids[key]
		if !ok {
			return nil, unknownRef(kind, key)
		}
		resolved = append(resolved, id)
	}
	return resolved, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
