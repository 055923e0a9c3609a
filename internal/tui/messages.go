package tui

import (
	"github.com/rgehrsitz/hatgo/internal/domain"
)

// Scene represents the screens of the TUI
type Scene int

const (
	SceneYears Scene = iota
	SceneDetail
)

func (s Scene) String() string {
	switch s {
	case SceneYears:
		return "Years"
	case SceneDetail:
		return "Year detail"
	default:
		return "Unknown"
	}
}

// ErrorMsg displays an error to the user
type ErrorMsg struct {
	Err error
}

// ConfigLoadedMsg signals configuration has been loaded
type ConfigLoadedMsg struct {
	Config *domain.Configuration
}

// RunCompleteMsg carries the result of a run. Halt is set when a shortfall
// stopped the run; the result still holds the recorded years.
type RunCompleteMsg struct {
	Result *domain.RunResult
	Halt   *domain.UnsatisfiedDemandError
	Err    error
}
