package export

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/clickpace/internal/stats"
)

// Document is the machine-readable report written next to the CSV.
type Document struct {
	Generated time.Time           `yaml:"generated"`
	SessionID string              `yaml:"session_id,omitempty"`
	StartedAt time.Time           `yaml:"started_at"`
	EndedAt   time.Time           `yaml:"ended_at"`
	Report    stats.Report        `yaml:"report"`
	Engine    *stats.EngineReport `yaml:"engine,omitempty"`
}

// WriteYAML encodes doc with two-space indentation.
func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
