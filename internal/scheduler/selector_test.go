package scheduler

import "testing"

type fakeSource struct {
	name      string
	available bool
	chance    float64
	equip     string
}

func (f *fakeSource) Name() string    { return f.name }
func (f *fakeSource) Available() bool { return f.available }
func (f *fakeSource) Chance() float64 { return f.chance }
func (f *fakeSource) Equip() string   { return f.equip }

func TestGuaranteedSource(t *testing.T) {
	likely := &fakeSource{name: "likely", available: true, chance: 0.9}
	offline := &fakeSource{name: "offline", available: false, chance: 1}
	sure := &fakeSource{name: "sure", available: true, chance: 1}
	alsoSure := &fakeSource{name: "also-sure", available: true, chance: 1}

	tests := []struct {
		name    string
		sources []EventSource
		want    string
	}{
		{"none", nil, ""},
		{"only probable", []EventSource{likely}, ""},
		{"unavailable certainty is ignored", []EventSource{offline}, ""},
		{"first guaranteed wins", []EventSource{likely, sure, alsoSure}, "sure"},
		{"nil entries skipped", []EventSource{nil, alsoSure}, "also-sure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GuaranteedSource(tt.sources)
			if tt.want == "" {
				if ok {
					t.Errorf("expected no source, got %s", got.Name())
				}
				return
			}
			if !ok || got.Name() != tt.want {
				t.Errorf("GuaranteedSource() = %v, %v; want %s", got, ok, tt.want)
			}
		})
	}
}

func TestSelectPairing(t *testing.T) {
	kramco := &fakeSource{name: "Kramco", available: true, chance: 1, equip: "Kramco Sausage-o-Matic"}
	free := &fakeSource{name: "Free", available: true, chance: 1}
	probable := &fakeSource{name: "Voter", available: true, chance: 0.5}

	a := &Task{Name: "A"}
	b := &Task{Name: "B", Delay: 5}
	c := &Task{Name: "C", Delay: 5}

	delayed := map[*Task]bool{b: true, c: true}
	hasDelay := func(t *Task) bool { return delayed[t] }

	tests := []struct {
		name     string
		sources  []EventSource
		canEquip func(*Task, EventSource) bool
		wantTask *Task
		wantSrc  EventSource
		wantOK   bool
	}{
		{
			name:     "first delayed task gets the wanderer",
			sources:  []EventSource{kramco},
			canEquip: func(*Task, EventSource) bool { return true },
			wantTask: b,
			wantSrc:  kramco,
			wantOK:   true,
		},
		{
			name:    "equipment conflict skips a candidate",
			sources: []EventSource{kramco},
			canEquip: func(t *Task, _ EventSource) bool {
				return t != b
			},
			wantTask: c,
			wantSrc:  kramco,
			wantOK:   true,
		},
		{
			name:     "no compatible candidate",
			sources:  []EventSource{kramco},
			canEquip: func(*Task, EventSource) bool { return false },
		},
		{
			name:    "no guaranteed source",
			sources: []EventSource{probable},
		},
		{
			name:     "nil compatibility check accepts any",
			sources:  []EventSource{probable, free},
			wantTask: b,
			wantSrc:  free,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectPairing(tt.sources, []*Task{a, b, c}, hasDelay, tt.canEquip)
			if ok != tt.wantOK {
				t.Fatalf("SelectPairing() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Task != tt.wantTask {
				t.Errorf("Task = %s, want %s", got.Task.Name, tt.wantTask.Name)
			}
			if got.Source != tt.wantSrc {
				t.Errorf("Source = %s, want %s", got.Source.Name(), tt.wantSrc.Name())
			}
		})
	}
}

func TestSelectPairingWithEngine(t *testing.T) {
	spent := 0
	filler := &Task{Name: "Filler", Delay: 3, TurnsSpent: func() int { return spent }}
	done := &Task{Name: "Done", Delay: 3, Completed: func() bool { return true }}
	route, err := Prioritize([]*Task{done, filler})
	if err != nil {
		t.Fatalf("Prioritize() error = %v", err)
	}
	e := NewEngine(route)
	src := &fakeSource{name: "Kramco", available: true, chance: 1}

	p, ok := SelectPairing([]EventSource{src}, route.Tasks(), e.HasDelay, nil)
	if !ok || p.Task != filler {
		t.Fatalf("expected Filler to be paired, got %+v, %v", p, ok)
	}

	spent = 3
	if _, ok := SelectPairing([]EventSource{src}, route.Tasks(), e.HasDelay, nil); ok {
		t.Error("no pairing expected once the delay is used up")
	}
}

func TestCanEquipWith(t *testing.T) {
	tk := &Task{Name: "t"}
	bare := &fakeSource{name: "bare"}
	gear := &fakeSource{name: "gear", equip: "cursed magnifying glass"}
	out := &stubOutfitter{allowed: map[string]bool{"t|cursed magnifying glass": true}}

	if !CanEquipWith(nil)(tk, bare) {
		t.Error("sources without equipment should always be compatible")
	}
	if CanEquipWith(nil)(tk, gear) {
		t.Error("nil outfitter cannot equip anything")
	}
	if !CanEquipWith(out)(tk, gear) {
		t.Error("outfitter allowed the item")
	}
	if CanEquipWith(out)(&Task{Name: "other"}, gear) {
		t.Error("outfitter rejected the item for other tasks")
	}
}
