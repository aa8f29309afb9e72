package types

// Playbook is one play read from a playbook file. Hosts holds the raw
// selector expression, e.g. "web:&production:!db1".
type Playbook struct {
	Path  string `json:"path" yaml:"path"`
	Name  string `json:"name" yaml:"name"`
	Hosts string `json:"hosts" yaml:"hosts"`
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

// Task is a display projection of a playbook task. Args values are
// flattened to strings, so this is not a faithful task model.
type Task struct {
	Name   string            `json:"name" yaml:"name"`
	Module string            `json:"module" yaml:"module"`
	Args   map[string]string `json:"args,omitempty" yaml:"args,omitempty"`
}
