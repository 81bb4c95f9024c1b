package csvio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/timetable-api/internal/timetable"
)

// LoadPolicy overlays the YAML file at path onto base. Keys absent from the
// file keep the base value; an empty path returns base unchanged.
func LoadPolicy(path string, base timetable.Options) (timetable.Options, error) {
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read policy: %w", err)
	}
	opts := base
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return base, fmt.Errorf("parse policy: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return base, err
	}
	return opts, nil
}
