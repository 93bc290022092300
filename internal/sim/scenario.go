// Package sim runs the scheduler against a deterministic in-memory world
// described by a YAML scenario.
package sim

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes a simulated run.
type Scenario struct {
	Name string `yaml:"name"`

	// Budget is the number of adventures available.
	Budget int `yaml:"budget"`

	// Goal lists the tasks that must be complete for the run to succeed.
	// An empty goal requires every task.
	Goal []string `yaml:"goal,omitempty"`

	Tasks  []TaskSpec  `yaml:"tasks"`
	Events []EventSpec `yaml:"events,omitempty"`
}

// TaskSpec is one simulated task.
type TaskSpec struct {
	Name     string   `yaml:"name"`
	After    []string `yaml:"after,omitempty"`
	Tries    int      `yaml:"tries,omitempty"`
	Soft     int      `yaml:"soft,omitempty"`
	Message  string   `yaml:"message,omitempty"`
	Delay    int      `yaml:"delay,omitempty"`
	Free     bool     `yaml:"free,omitempty"`
	Boss     bool     `yaml:"boss,omitempty"`
	Priority bool     `yaml:"priority,omitempty"` // Preempts while incomplete

	// ReadyAfter holds the task back until this many adventures are used.
	ReadyAfter int `yaml:"ready_after,omitempty"`

	// CompletesAfter is the number of attempts that complete the task.
	// Zero means one attempt; negative means never.
	CompletesAfter int `yaml:"completes_after,omitempty"`

	// Cost is the adventures one attempt spends. Zero means one, unless Free.
	Cost int `yaml:"cost,omitempty"`

	// Conflicts lists wanderer items that cannot be worn with this task.
	Conflicts []string `yaml:"conflicts,omitempty"`

	// Fail makes every attempt return an error.
	Fail bool `yaml:"fail,omitempty"`
}

// EventSpec is one simulated wanderer source.
type EventSpec struct {
	Name   string  `yaml:"name"`
	Chance float64 `yaml:"chance"`
	Equip  string  `yaml:"equip,omitempty"`

	// AppearsAt makes the source available once this many adventures are used.
	AppearsAt int `yaml:"appears_at,omitempty"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scenario, rejecting unknown fields, and validates it.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario for missing and inconsistent fields.
// Dependency structure is left to the prioritizer.
func (sc *Scenario) Validate() error {
	if sc.Budget < 0 {
		return fmt.Errorf("scenario %q: budget must not be negative", sc.Name)
	}
	if len(sc.Tasks) == 0 {
		return fmt.Errorf("scenario %q: no tasks", sc.Name)
	}

	names := make(map[string]bool, len(sc.Tasks))
	for i, task := range sc.Tasks {
		if task.Name == "" {
			return fmt.Errorf("scenario %q: task %d has no name", sc.Name, i)
		}
		if task.Cost < 0 {
			return fmt.Errorf("scenario %q: task %q has a negative cost", sc.Name, task.Name)
		}
		names[task.Name] = true
	}
	for _, goal := range sc.Goal {
		if !names[goal] {
			return fmt.Errorf("scenario %q: goal names unknown task %q", sc.Name, goal)
		}
	}

	var errs []error
	for i, ev := range sc.Events {
		if ev.Name == "" {
			errs = append(errs, fmt.Errorf("event %d has no name", i))
		}
		if ev.Chance < 0 || ev.Chance > 1 {
			errs = append(errs, fmt.Errorf("event %q: chance %v is outside [0,1]", ev.Name, ev.Chance))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	return nil
}
