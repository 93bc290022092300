package game

import (
	"strconv"
	"time"

	"github.com/aristath/questloop/internal/scheduler"
)

// Quest step sentinels as reported by the game CLI.
const (
	StepUnstarted = -1
	StepStarted   = 0
	StepFinished  = 999
)

// Snapshot is the game state reported by `status --json`.
type Snapshot struct {
	Adventures    int               `json:"adventures"`
	TurnsPlayed   int               `json:"turns_played"`
	Meat          int64             `json:"meat"`
	ClosetMeat    int64             `json:"closet_meat"`
	GametimeMS    int64             `json:"gametime_ms"`
	Steps         map[string]int    `json:"quest_steps"`
	Items         map[string]int    `json:"items"`
	Skills        []string          `json:"skills"`
	Properties    map[string]string `json:"properties"`
	LocationTurns map[string]int    `json:"location_turns"`
	ItemSlots     map[string]string `json:"item_slots"` // item -> slot kind ("hat", "acc", ...)
	Equipped      map[string]string `json:"equipped"`   // slot ("hat", "acc1", ...) -> item
	Wanderers     []WandererInfo    `json:"wanderers"`
}

// WandererInfo describes one wanderer source.
type WandererInfo struct {
	Name      string  `json:"name"`
	Available bool    `json:"available"`
	Chance    float64 `json:"chance"`
	Equip     string  `json:"equip,omitempty"`
}

// Step returns the quest's step, or StepUnstarted if the game did not report it.
func (s Snapshot) Step(quest string) int {
	if step, ok := s.Steps[quest]; ok {
		return step
	}
	return StepUnstarted
}

// Count returns how many of item are held, including worn copies.
func (s Snapshot) Count(item string) int {
	n := s.Items[item]
	for _, worn := range s.Equipped {
		if worn == item {
			n++
		}
	}
	return n
}

// HasSkill reports whether the character knows the skill.
func (s Snapshot) HasSkill(skill string) bool {
	for _, known := range s.Skills {
		if known == skill {
			return true
		}
	}
	return false
}

// IntProperty parses a numeric property; missing or malformed values are 0.
func (s Snapshot) IntProperty(name string) int {
	n, err := strconv.Atoi(s.Properties[name])
	if err != nil {
		return 0
	}
	return n
}

// BoolProperty reports whether a property is "true".
func (s Snapshot) BoolProperty(name string) bool {
	return s.Properties[name] == "true"
}

// Gametime converts the reported game clock.
func (s Snapshot) Gametime() time.Time {
	return time.UnixMilli(s.GametimeMS)
}

// wanderer adapts WandererInfo to scheduler.EventSource.
type wanderer struct {
	info WandererInfo
}

var _ scheduler.EventSource = wanderer{}

func (w wanderer) Name() string    { return w.info.Name }
func (w wanderer) Available() bool { return w.info.Available }
func (w wanderer) Chance() float64 { return w.info.Chance }
func (w wanderer) Equip() string   { return w.info.Equip }
