package scheduler

// Pairing is a wanderer folded into a filler task.
type Pairing struct {
	Task   *Task
	Source EventSource
}

// GuaranteedSource returns the first source that is available and certain to
// fire on the next turn.
func GuaranteedSource(sources []EventSource) (EventSource, bool) {
	for _, src := range sources {
		if src != nil && src.Available() && src.Chance() == 1 {
			return src, true
		}
	}
	return nil, false
}

// SelectPairing looks one wanderer and one task ahead: the first guaranteed
// source is matched with the first candidate (in route order) that still has
// delay to burn and can wear the source's equipment. It has no side effects.
func SelectPairing(sources []EventSource, candidates []*Task, hasDelay func(*Task) bool, canEquip func(*Task, EventSource) bool) (Pairing, bool) {
	src, ok := GuaranteedSource(sources)
	if !ok {
		return Pairing{}, false
	}
	for _, task := range candidates {
		if !hasDelay(task) {
			continue
		}
		if canEquip != nil && !canEquip(task, src) {
			continue
		}
		return Pairing{Task: task, Source: src}, true
	}
	return Pairing{}, false
}

// CanEquipWith adapts an Outfitter into the compatibility check SelectPairing
// expects. A nil outfitter only accepts sources that need no equipment.
func CanEquipWith(o Outfitter) func(*Task, EventSource) bool {
	return func(task *Task, src EventSource) bool {
		if src.Equip() == "" {
			return true
		}
		if o == nil {
			return false
		}
		return o.CanEquip(task, src.Equip())
	}
}
