package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rgehrsitz/hatgo/internal/domain"
)

// Formatter renders a run result.
type Formatter interface {
	Name() string
	Format(result *domain.RunResult) ([]byte, error)
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc struct {
	ID string
	F  func(result *domain.RunResult) ([]byte, error)
}

func (f FormatterFunc) Name() string { return f.ID }

func (f FormatterFunc) Format(result *domain.RunResult) ([]byte, error) { return f.F(result) }

var formatters = []Formatter{
	ConsoleFormatter{},
	SummaryCSVFormatter{},
	EventsCSVFormatter{},
	GroupsCSVFormatter{},
	JSONFormatter{},
	YAMLFormatter{},
}

var aliases = map[string]string{
	"table":  "console",
	"events": "events-csv",
	"groups": "groups-csv",
	"yml":    "yaml",
}

// GetFormatterByName returns the formatter registered under name or one of
// its aliases, or nil.
func GetFormatterByName(name string) Formatter {
	name = strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[name]; ok {
		name = target
	}
	for _, f := range formatters {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// AvailableFormatterNames lists the registered formatter names.
func AvailableFormatterNames() []string {
	names := make([]string, len(formatters))
	for i, f := range formatters {
		names[i] = f.Name()
	}
	return names
}

// AvailableFormatAliases lists the accepted aliases, sorted.
func AvailableFormatAliases() []string {
	out := make([]string, 0, len(aliases))
	for a := range aliases {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// WriteFormatted formats result and writes it to a timestamped file in the
// working directory. It returns the file name.
func WriteFormatted(f Formatter, result *domain.RunResult, ext string) (string, error) {
	data, err := f.Format(result)
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("hat_report_%s_%s.%s", result.Country, time.Now().Format("20060102_150405"), ext)
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return filename, nil
}

// WriteTo formats result into path, or to stdout when path is empty or "-".
func WriteTo(f Formatter, result *domain.RunResult, path string, stdout io.Writer) error {
	data, err := f.Format(result)
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		if stdout == nil {
			stdout = os.Stdout
		}
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
