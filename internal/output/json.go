package output

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// JSONFormatter writes the whole run result.
type JSONFormatter struct{}

func (JSONFormatter) Name() string { return "json" }

func (JSONFormatter) Format(result *domain.RunResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// yamlReport is the YAML view of a run: summaries, the dynamic
// instructions and what the engine committed.
type yamlReport struct {
	RunID        string                          `yaml:"run_id"`
	Country      string                          `yaml:"country"`
	NeverMatched []string                        `yaml:"never_matched,omitempty"`
	Years        []domain.YearSummary            `yaml:"years"`
	Events       []domain.DisturbanceInstruction `yaml:"events,omitempty"`
	Committed    []domain.AppliedEvent           `yaml:"committed,omitempty"`
}

// YAMLFormatter writes the yamlReport of a run.
type YAMLFormatter struct{}

func (YAMLFormatter) Name() string { return "yaml" }

func (YAMLFormatter) Format(result *domain.RunResult) ([]byte, error) {
	rep := yamlReport{
		RunID:        result.RunID,
		Country:      result.Country,
		NeverMatched: result.NeverMatched,
		Years:        result.Summaries(),
	}
	for _, y := range result.Years {
		rep.Events = append(rep.Events, y.Instructions...)
		rep.Committed = append(rep.Committed, y.Events...)
	}
	return yaml.Marshal(rep)
}
