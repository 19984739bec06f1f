// Package verdict maps review statuses to the texts sent to students.
package verdict

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Known review statuses.
const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

// Catalog is a status -> verdict text lookup table.
type Catalog struct {
	verdicts map[string]string
}

type catalogFile struct {
	Verdicts map[string]string `yaml:"verdicts"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{verdicts: map[string]string{
		StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
		StatusReviewing: "Работа взята на проверку ревьюером.",
		StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
	}}
}

// LoadFile reads a YAML file and merges its verdicts over the defaults.
// An empty path returns the defaults.
func LoadFile(path string) (*Catalog, error) {
	catalog := Default()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read verdicts file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse verdicts file %s: %w", path, err)
	}

	for status, text := range file.Verdicts {
		if status == "" || text == "" {
			return nil, fmt.Errorf("verdicts file %s: empty status or text", path)
		}
		catalog.verdicts[status] = text
	}
	return catalog, nil
}

// Lookup returns the verdict for status.
func (c *Catalog) Lookup(status string) (string, bool) {
	text, ok := c.verdicts[status]
	return text, ok
}

// Statuses lists the known statuses in sorted order.
func (c *Catalog) Statuses() []string {
	statuses := make([]string, 0, len(c.verdicts))
	for status := range c.verdicts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	return statuses
}
