package pipeline

import (
	"fmt"
	"time"
)

// Stage selects which part of the pipeline a run performs.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageNormalize Stage = "normalize"
	StageLoad      Stage = "load"
	StageAll       Stage = "all"
)

// ParseStage validates a stage name. The empty string means StageAll.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case "", StageAll:
		return StageAll, nil
	case StageExtract, StageNormalize, StageLoad:
		return Stage(s), nil
	default:
		return "", fmt.Errorf("unknown stage %q (want extract, normalize, load or all)", s)
	}
}

// Includes reports whether running s performs step.
func (s Stage) Includes(step Stage) bool {
	return s == StageAll || s == step
}

// NeedsStore reports whether the stage writes to the relational store.
func (s Stage) NeedsStore() bool {
	return s.Includes(StageLoad)
}

// ProviderReport counts one provider's extract and normalize results.
type ProviderReport struct {
	Provider      string `json:"provider"`
	Fetched       int    `json:"fetched"`
	RawAppended   int    `json:"raw_appended"`
	Normalized    int    `json:"normalized"`
	CleanAppended int    `json:"clean_appended"`
	Skipped       string `json:"skipped,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Report summarizes one pipeline run.
type Report struct {
	RunID      string           `json:"run_id"`
	Stage      Stage            `json:"stage"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Providers  []ProviderReport `json:"providers"`
	Load       *LoadResult      `json:"load,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
}

// Duration is the wall time between start and finish.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) provider(name string) *ProviderReport {
	for i := range r.Providers {
		if r.Providers[i].Provider == name {
			return &r.Providers[i]
		}
	}
	r.Providers = append(r.Providers, ProviderReport{Provider: name})
	return &r.Providers[len(r.Providers)-1]
}

func (r *Report) addError(stage Stage, format string, args ...any) {
	r.Errors = append(r.Errors, string(stage)+": "+fmt.Sprintf(format, args...))
}
