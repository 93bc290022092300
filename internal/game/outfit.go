package game

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aristath/questloop/internal/scheduler"
)

// AccessorySlot is the slot kind worn three times.
const AccessorySlot = "acc"

const accessorySlots = 3

// Outfitter dresses the character for a task using the session's view of
// owned equipment and item slots.
type Outfitter struct {
	session *Session
}

var _ scheduler.Outfitter = (*Outfitter)(nil)

// NewOutfitter creates an outfitter over a session.
func NewOutfitter(session *Session) *Outfitter {
	return &Outfitter{session: session}
}

// CanEquip reports whether item is owned and its slot still has room next to
// the task's required equipment.
func (o *Outfitter) CanEquip(task *scheduler.Task, item string) bool {
	if item == "" || slices.Contains(task.Outfit.Equip, item) {
		return true
	}
	if !o.session.Have(item) {
		return false
	}
	slot := o.session.SlotOf(item)
	if slot == "" {
		return false
	}

	used := 0
	for _, required := range task.Outfit.Equip {
		if o.session.SlotOf(required) == slot {
			used++
		}
	}
	return used < slotCapacity(slot)
}

// Dress equips the task's outfit, plus the wanderer's item when ev is set.
// With a modifier the maximizer picks everything else around the required
// items; without one each item is equipped directly.
func (o *Outfitter) Dress(ctx context.Context, task *scheduler.Task, ev scheduler.EventSource) error {
	items := append([]string(nil), task.Outfit.Equip...)
	if ev != nil && ev.Equip() != "" && !slices.Contains(items, ev.Equip()) {
		items = append(items, ev.Equip())
	}
	if len(items) == 0 && task.Outfit.Modifier == "" && task.Outfit.Familiar == "" {
		return nil
	}

	client := o.session.Client()
	if task.Outfit.Familiar != "" {
		if err := client.Familiar(ctx, task.Outfit.Familiar); err != nil {
			return err
		}
	}

	if task.Outfit.Modifier != "" {
		if err := client.Maximize(ctx, maximizerExpr(task.Outfit.Modifier, items)); err != nil {
			return err
		}
		return o.session.Refresh(ctx)
	}

	slots, err := o.assignSlots(items)
	if err != nil {
		return err
	}
	for i, item := range items {
		if err := client.Equip(ctx, slots[i], item); err != nil {
			return err
		}
	}
	return o.session.Refresh(ctx)
}

// assignSlots maps each item to a concrete slot, numbering accessories.
func (o *Outfitter) assignSlots(items []string) ([]string, error) {
	out := make([]string, len(items))
	taken := make(map[string]int)
	for i, item := range items {
		kind := o.session.SlotOf(item)
		if kind == "" {
			return nil, fmt.Errorf("%s is not equipment", item)
		}
		taken[kind]++
		if taken[kind] > slotCapacity(kind) {
			return nil, fmt.Errorf("too many %s items: %s", kind, strings.Join(items, ", "))
		}
		if kind == AccessorySlot {
			out[i] = fmt.Sprintf("%s%d", AccessorySlot, taken[kind])
		} else {
			out[i] = kind
		}
	}
	return out, nil
}

func maximizerExpr(modifier string, items []string) string {
	parts := []string{modifier}
	for _, item := range items {
		parts = append(parts, "equip "+item)
	}
	return strings.Join(parts, ", ")
}

func slotCapacity(kind string) int {
	if kind == AccessorySlot {
		return accessorySlots
	}
	return 1
}
