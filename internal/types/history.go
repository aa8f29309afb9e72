package types

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the final state of a playbook run.
type ExecutionStatus string

const (
	StatusSuccess   ExecutionStatus = "success"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// ExecutionHistory records one finished playbook run.
type ExecutionHistory struct {
	ID           string            `json:"id" yaml:"id"`
	Environment  Environment       `json:"environment" yaml:"environment"`
	PlaybookPath string            `json:"playbook_path" yaml:"playbook_path"`
	HostGroups   []string          `json:"host_groups" yaml:"host_groups"`
	ExecutedAt   time.Time         `json:"executed_at" yaml:"executed_at"`
	Duration     time.Duration     `json:"duration" yaml:"duration"`
	Status       ExecutionStatus   `json:"status" yaml:"status"`
	OutputPath   string            `json:"output_path" yaml:"output_path"`
	CheckMode    bool              `json:"check_mode" yaml:"check_mode"`
	ExtraVars    map[string]string `json:"extra_vars,omitempty" yaml:"extra_vars,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Summary      *ExecutionSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Succeeded reports whether the run finished successfully. A recorded
// summary must agree.
func (h ExecutionHistory) Succeeded() bool {
	if h.Status != StatusSuccess {
		return false
	}
	return h.Summary == nil || h.Summary.IsSuccess()
}

// ExecutionSummary aggregates the recap printed at the end of a run.
type ExecutionSummary struct {
	TotalTasks       int      `json:"total_tasks" yaml:"total_tasks"`
	CompletedTasks   int      `json:"completed_tasks" yaml:"completed_tasks"`
	FailedTasks      int      `json:"failed_tasks" yaml:"failed_tasks"`
	SkippedTasks     int      `json:"skipped_tasks" yaml:"skipped_tasks"`
	ChangedTasks     int      `json:"changed_tasks" yaml:"changed_tasks"`
	UnreachableHosts []string `json:"unreachable_hosts,omitempty" yaml:"unreachable_hosts,omitempty"`
	FailedHosts      []string `json:"failed_hosts,omitempty" yaml:"failed_hosts,omitempty"`
}

// IsSuccess reports whether no task failed and every host was reached.
func (s ExecutionSummary) IsSuccess() bool {
	return s.FailedTasks == 0 && len(s.UnreachableHosts) == 0 && len(s.FailedHosts) == 0
}

// Preset is a named, reusable set of run parameters.
type Preset struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Environment  Environment       `json:"environment" yaml:"environment"`
	PlaybookPath string            `json:"playbook_path" yaml:"playbook_path"`
	HostGroups   []string          `json:"host_groups" yaml:"host_groups"`
	CheckMode    bool              `json:"check_mode" yaml:"check_mode"`
	ExtraVars    map[string]string `json:"extra_vars,omitempty" yaml:"extra_vars,omitempty"`
	CreatedAt    time.Time         `json:"created_at" yaml:"created_at"`
	LastUsedAt   *time.Time        `json:"last_used_at,omitempty" yaml:"last_used_at,omitempty"`
}

// PresetFromHistory captures the parameters of a past run under a new name.
func PresetFromHistory(h ExecutionHistory, name, description string) Preset {
	return Preset{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		Environment:  h.Environment,
		PlaybookPath: h.PlaybookPath,
		HostGroups:   h.HostGroups,
		CheckMode:    h.CheckMode,
		ExtraVars:    h.ExtraVars,
		CreatedAt:    time.Now(),
	}
}

// NewPreset names a selection of host groups for a playbook.
func NewPreset(name, description string, env Environment, playbookPath string, hostGroups []string) Preset {
	return Preset{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		Environment:  env,
		PlaybookPath: playbookPath,
		HostGroups:   hostGroups,
		CreatedAt:    time.Now(),
	}
}
