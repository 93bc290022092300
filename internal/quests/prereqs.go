package quests

import (
	"context"

	"github.com/aristath/questloop/internal/scheduler"
)

// Macguffin covers the diary that opens the level 11 subquests.
func Macguffin(w World) scheduler.Quest {
	return scheduler.Quest{
		Name: "Macguffin",
		Tasks: []*scheduler.Task{
			{
				Name:       "Forest",
				Completed:  stepAtLeast(w, "questL11Black", 2),
				Do:         adventure(w, "The Black Forest", map[int]int{923: 1, 924: 1}),
				Delay:      5,
				TurnsSpent: turnsAt(w, "The Black Forest"),
				Limit:      scheduler.Limit{Soft: 15},
			},
			{
				Name:      "Diary",
				After:     []string{"Forest"},
				Completed: stepAtLeast(w, "questL11MacGuffin", 2),
				Acquire:   []scheduler.Acquire{{Item: "forged identification documents"}},
				Do: func(ctx context.Context, ev scheduler.EventSource) error {
					return w.Adventure(ctx, "The Shore, Inc. Travel Agency", map[int]int{793: 1})
				},
				Limit: scheduler.Limit{Tries: 3},
			},
		},
	}
}

// Bat covers the Boss Bat lair entrance.
func Bat(w World) scheduler.Quest {
	return scheduler.Quest{
		Name: "Bat",
		Tasks: []*scheduler.Task{
			{
				Name:      "Use Sonar",
				Completed: stepAtLeast(w, "questL04Bat", 3),
				Acquire:   []scheduler.Acquire{{Item: "sonar-in-a-biscuit"}},
				Do: func(ctx context.Context, ev scheduler.EventSource) error {
					return w.Use(ctx, "sonar-in-a-biscuit", 1)
				},
				Limit:      scheduler.Limit{Tries: 3},
				FreeAction: true,
			},
		},
	}
}

// McLargeHuge covers the ores for the trapper.
func McLargeHuge(w World) scheduler.Quest {
	return scheduler.Quest{
		Name: "McLargeHuge",
		Tasks: []*scheduler.Task{
			{
				Name:      "Ores",
				Completed: stepAtLeast(w, "questL08Trapper", 2),
				Do: func(ctx context.Context, ev scheduler.EventSource) error {
					ore := w.Property("trapperOre")
					if ore != "" && !w.Have(ore) {
						return w.Adventure(ctx, "Itznotyerzitz Mine", map[int]int{})
					}
					return w.Visit(ctx, "place.php?whichplace=mclargehuge&action=trappercabin")
				},
				Limit: scheduler.Limit{Soft: 20},
			},
		},
	}
}

// Giant covers the castle floors.
func Giant(w World) scheduler.Quest {
	return scheduler.Quest{
		Name: "Giant",
		Tasks: []*scheduler.Task{
			{
				Name:       "Ground",
				Completed:  stepAtLeast(w, "questL10Garbage", 9),
				Do:         adventure(w, "The Castle in the Clouds in the Sky (Ground Floor)", map[int]int{672: 3, 673: 3, 674: 3, 1026: 2}),
				Delay:      10,
				TurnsSpent: turnsAt(w, "The Castle in the Clouds in the Sky (Ground Floor)"),
				Limit:      scheduler.Limit{Soft: 20},
			},
			{
				Name:      "Unlock HITS",
				After:     []string{"Ground"},
				Completed: func() bool { return w.Have("steam-powered model rocketship") },
				Do:        adventure(w, "The Castle in the Clouds in the Sky (Top Floor)", map[int]int{675: 4, 676: 4, 677: 2, 678: 3, 679: 1, 1431: 4}),
				Outfit:    scheduler.Outfit{Modifier: "-combat"},
				Limit:     scheduler.Limit{Soft: 20},
			},
		},
	}
}
