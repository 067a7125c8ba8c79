package harvest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// AxisHealth is the persisted hit history for one query template.
type AxisHealth struct {
	Runs int `json:"runs"`
	Hits int `json:"hits"`
}

// Ratio is the historical hit rate; unseen axes report the supplied default.
func (h AxisHealth) Ratio(unseen float64) float64 {
	if h.Runs == 0 {
		return unseen
	}
	return float64(h.Hits) / float64(h.Runs)
}

// HealthRepo persists axis health across runs. Merging is additive: health is
// cumulative across processes, so concurrent writers add counters rather than
// overwrite each other.
type HealthRepo interface {
	Load() (map[string]AxisHealth, error)
	MergeAndSave(delta map[string]AxisHealth) error
}

// FileHealthRepo stores health as a JSON object keyed by template string.
type FileHealthRepo struct {
	path string
	mu   sync.Mutex
}

// NewFileHealthRepo creates a repo at path, creating parent directories on
// first save.
func NewFileHealthRepo(path string) *FileHealthRepo {
	return &FileHealthRepo{path: path}
}

// Load reads the health map. A missing file is an empty map, not an error.
func (r *FileHealthRepo) Load() (map[string]AxisHealth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *FileHealthRepo) load() (map[string]AxisHealth, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return map[string]AxisHealth{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read axis health: %w", err)
	}

	health := map[string]AxisHealth{}
	if err := json.Unmarshal(data, &health); err != nil {
		return nil, fmt.Errorf("parse axis health: %w", err)
	}
	return health, nil
}

// MergeAndSave re-reads the file and adds delta counters before writing, so a
// concurrent run's updates are preserved.
func (r *FileHealthRepo) MergeAndSave(delta map[string]AxisHealth) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load()
	if err != nil {
		return err
	}
	for template, d := range delta {
		h := current[template]
		h.Runs += d.Runs
		h.Hits += d.Hits
		current[template] = h
	}

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal axis health: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create health dir: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write axis health: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace axis health: %w", err)
	}
	return nil
}

// MemoryHealthRepo keeps health in memory; used in tests and when no health
// path is configured.
type MemoryHealthRepo struct {
	mu     sync.Mutex
	health map[string]AxisHealth
}

// NewMemoryHealthRepo creates an empty in-memory repo.
func NewMemoryHealthRepo() *MemoryHealthRepo {
	return &MemoryHealthRepo{health: map[string]AxisHealth{}}
}

// Load returns a copy of the current health map.
func (r *MemoryHealthRepo) Load() (map[string]AxisHealth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]AxisHealth, len(r.health))
	for k, v := range r.health {
		out[k] = v
	}
	return out, nil
}

// MergeAndSave adds delta counters to the stored map.
func (r *MemoryHealthRepo) MergeAndSave(delta map[string]AxisHealth) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for template, d := range delta {
		h := r.health[template]
		h.Runs += d.Runs
		h.Hits += d.Hits
		r.health[template] = h
	}
	return nil
}
