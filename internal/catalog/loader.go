package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cloud-warriors/uat-portal/internal/models"
)

// catalogFile is the on-disk shape of one category's scenario definitions
type catalogFile struct {
	Category  string `yaml:"category"`
	Scenarios []struct {
		Subcategory string `yaml:"subcategory"`
		Description string `yaml:"description"`
	} `yaml:"scenarios"`
}

// Loader manages the scenario catalog: the predefined test definitions
// instantiated into results whenever a project is created. Files are
// loaded in name order so the catalog's category ordering is stable.
type Loader struct {
	mu        sync.RWMutex
	scenarios []models.TestScenario
	byID      map[string]int
}

// NewLoader creates an empty catalog loader
func NewLoader() *Loader {
	return &Loader{
		byID: make(map[string]int),
	}
}

// LoadFromDir loads all YAML catalog files from a directory. Files that
// fail to parse are skipped with a warning; the rest of the catalog
// still loads.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading scenario catalog", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load catalog file", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("scenario catalog loaded", "files", loaded, "scenarios", l.Count())
	return nil
}

// LoadFromFile loads a single category file into the catalog
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cf.Category == "" {
		return fmt.Errorf("category is required")
	}
	if len(cf.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, sc := range cf.Scenarios {
		if sc.Description == "" {
			return fmt.Errorf("scenario %d: description is required", i+1)
		}

		subcategory := sc.Subcategory
		if subcategory == "" {
			subcategory = "General"
		}

		scenario := models.TestScenario{
			ID:          scenarioID(cf.Category, subcategory, i+1),
			Category:    &models.Category{Name: cf.Category},
			Subcategory: subcategory,
			Description: sc.Description,
		}
		l.scenarios = append(l.scenarios, scenario)
		l.byID[scenario.ID] = len(l.scenarios) - 1
	}

	return nil
}

// Scenarios returns all catalog scenarios in catalog order
func (l *Loader) Scenarios() []models.TestScenario {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.TestScenario, len(l.scenarios))
	copy(out, l.scenarios)
	return out
}

// Get retrieves a scenario by its catalog ID, nil when absent
func (l *Loader) Get(id string) *models.TestScenario {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx, ok := l.byID[id]
	if !ok {
		return nil
	}
	sc := l.scenarios[idx]
	return &sc
}

// Categories returns the distinct category names in catalog order
func (l *Loader) Categories() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for _, sc := range l.scenarios {
		if sc.Category == nil || seen[sc.Category.Name] {
			continue
		}
		seen[sc.Category.Name] = true
		names = append(names, sc.Category.Name)
	}
	return names
}

// Count returns the number of loaded scenarios
func (l *Loader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.scenarios)
}

// scenarioID builds a stable catalog identifier like "login/authentication/1"
func scenarioID(category, subcategory string, n int) string {
	return fmt.Sprintf("%s/%s/%d", slug(category), slug(subcategory), n)
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
