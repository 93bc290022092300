package quests

import (
	"context"

	"github.com/aristath/questloop/internal/scheduler"
)

const (
	talisman = "Talisman o' Namsilat"
	loveMe   = "I Love Me, Vol. I"
	loveMe2  = "2 Love Me, Vol. 2"
	dome     = "Inside the Palindome"
)

var protesterChoices = map[int]int{856: 1, 857: 1, 858: 1, 866: 2, 1432: 1}

// shenItem reports whether Shen currently wants item.
func shenItem(w World, item string) bool {
	if w.Property("shenQuestItem") != item {
		return false
	}
	step := w.Step("questL11Shen")
	return step == 1 || step == 3 || step == 5
}

// snake builds one of Shen's snake hunts: it is ready while Shen wants item
// and extra holds, and done once the item is held or Shen is finished.
func snake(w World, name, item, location string, after []string, extra func() bool) *scheduler.Task {
	return &scheduler.Task{
		Name:  name,
		After: append([]string{"Copperhead Start"}, after...),
		Ready: func() bool {
			return shenItem(w, item) && (extra == nil || extra())
		},
		Completed: func() bool {
			return w.Step("questL11Shen") == finished || w.Have(item)
		},
		Do:         adventure(w, location, nil),
		Limit:      scheduler.Limit{Soft: 10},
		Delay:      5,
		TurnsSpent: turnsAt(w, location),
	}
}

func copperhead(w World) []*scheduler.Task {
	const club = "The Copperhead Club"
	castleTop := "The Castle in the Clouds in the Sky (Top Floor)"

	precastle := snake(w, "Hot Snake Precastle", "Murphy's Rancid Black Flag", castleTop,
		[]string{"Giant/Ground"}, func() bool { return w.Step("questL10Garbage") < 10 })
	precastle.Outfit = scheduler.Outfit{Equip: []string{"Mohawk wig"}, Modifier: "-combat"}
	precastle.Do = adventure(w, castleTop, map[int]int{675: 4, 676: 4, 677: 4, 678: 1, 679: 1, 1431: 4})

	postcastle := snake(w, "Hot Snake Postcastle", "Murphy's Rancid Black Flag", castleTop,
		[]string{"Giant/Ground"}, func() bool { return w.Step("questL10Garbage") >= 10 })
	postcastle.Outfit = scheduler.Outfit{Modifier: "+combat"}

	return []*scheduler.Task{
		{
			Name:      "Copperhead Start",
			After:     []string{"Macguffin/Diary"},
			Completed: stepAtLeast(w, "questL11Shen", 1),
			Do:        adventure(w, club, map[int]int{1074: 1}),
			Limit:     scheduler.Limit{Tries: 1},
		},
		{
			Name:  "Copperhead",
			After: []string{"Copperhead Start"},
			Ready: func() bool {
				step := w.Step("questL11Shen")
				return step == 2 || step == 4 || step == 6
			},
			Completed: func() bool { return w.Step("questL11Shen") == finished },
			Do:        adventure(w, club, map[int]int{852: 1, 853: 1, 854: 1}),
			Limit:     scheduler.Limit{Tries: 16},
		},
		snake(w, "Bat Snake", "The Stankara Stone", "The Batrat and Ratbat Burrow", []string{"Bat/Use Sonar"}, nil),
		snake(w, "Cold Snake", "The First Pizza", "Lair of the Ninja Snowmen", []string{"McLargeHuge/Ores"}, nil),
		precastle,
		postcastle,
		snake(w, "Sleaze Star Snake", "The Eye of the Stars", "The Hole in the Sky", []string{"Giant/Unlock HITS"}, nil),
		snake(w, "Sleaze Frat Snake", "The Lacrosse Stick of Lacoronado", "The Smut Orc Logging Camp", nil, nil),
		snake(w, "Spooky Snake Precrypt", "The Shield of Brook", "The Unquiet Garves", nil,
			func() bool { return w.Step("questL07Cyrptic") < finished }),
		snake(w, "Spooky Snake Postcrypt", "The Shield of Brook", "The VERY Unquiet Garves", nil,
			func() bool { return w.Step("questL07Cyrptic") == finished }),
	}
}

func zeppelin(w World) []*scheduler.Task {
	const mob = "A Mob of Zeppelin Protesters"

	return []*scheduler.Task{
		{
			Name:       "Protesters Start",
			After:      []string{"Macguffin/Diary"},
			Completed:  stepAtLeast(w, "questL11Ron", 1),
			Do:         adventure(w, mob, protesterChoices),
			Limit:      scheduler.Limit{Tries: 1},
			FreeAction: true,
		},
		{
			Name:      "Protesters",
			After:     []string{"Protesters Start"},
			Completed: func() bool { return w.IntProperty("zeppelinProtestors") >= 80 },
			Acquire:   []scheduler.Acquire{{Item: "11-leaf clover"}},
			Prepare: func(ctx context.Context) error {
				if w.IntProperty("zeppelinProtestors") >= 80 {
					return nil
				}
				if w.HasSkill("Bend Hell") && !w.BoolProperty("_bendHellUsed") {
					if err := w.CLI(ctx, "cast 1 Bend Hell"); err != nil {
						return err
					}
				}
				return w.Use(ctx, "11-leaf clover", 1)
			},
			Do:         adventure(w, mob, protesterChoices),
			Outfit:     scheduler.Outfit{Modifier: "sleaze dmg, sleaze spell dmg"},
			FreeAction: true,
			Limit:      scheduler.Limit{Tries: 5, Message: "Maybe your available sleaze damage is too low."},
		},
		{
			Name:      "Protesters Finish",
			After:     []string{"Protesters"},
			Completed: stepAtLeast(w, "questL11Ron", 2),
			Do:        adventure(w, mob, protesterChoices),
			// Clovers used before the intro adventure leave both the intro
			// and the closing adventure to clear here.
			Limit:      scheduler.Limit{Tries: 2},
			FreeAction: true,
		},
		{
			Name:  "Zepplin",
			After: []string{"Protesters Finish"},
			Acquire: []scheduler.Acquire{
				{Item: "glark cable", Useful: func() bool { return w.IntProperty("_glarkCableUses") < 5 }},
				{Item: "Red Zeppelin ticket"},
			},
			Completed: stepAtLeast(w, "questL11Ron", 5),
			Do:        adventure(w, "The Red Zeppelin", nil),
			Limit:     scheduler.Limit{Soft: 12},
		},
	}
}

func domeTasks(w World) []*scheduler.Task {
	photos := []string{"photograph of a red nugget", "photograph of God", "photograph of an ostrich egg"}
	palindomeDone := stepAtLeast(w, "questL11Palindome", 3)
	wearTalisman := scheduler.Outfit{Equip: []string{talisman}, Modifier: "-combat"}

	return []*scheduler.Task{
		{
			Name: "Talisman",
			After: []string{
				"Copperhead",
				"Zepplin",
				"Bat Snake",
				"Cold Snake",
				"Hot Snake Precastle",
				"Hot Snake Postcastle",
			},
			Completed: func() bool { return w.Have(talisman) },
			Do: func(ctx context.Context, ev scheduler.EventSource) error {
				return w.Create(ctx, talisman)
			},
			Limit:      scheduler.Limit{Tries: 1},
			FreeAction: true,
		},
		{
			Name:      "Palindome Dog",
			After:     []string{"Talisman"},
			Acquire:   []scheduler.Acquire{{Item: "disposable instant camera"}},
			Completed: func() bool { return w.Have("photograph of a dog") || palindomeDone() },
			Do:        adventure(w, dome, nil),
			Outfit:    wearTalisman,
			Limit:     scheduler.Limit{Soft: 20},
		},
		{
			Name:      "Palindome Dudes",
			After:     []string{"Palindome Dog"},
			Completed: func() bool { return w.Have(loveMe) || palindomeDone() },
			Do:        adventure(w, dome, nil),
			Outfit:    wearTalisman,
			Limit:     scheduler.Limit{Soft: 20},
		},
		{
			Name:  "Palindome Photos",
			After: []string{"Palindome Dudes"},
			Completed: func() bool {
				for _, photo := range photos {
					if !w.Have(photo) {
						return palindomeDone()
					}
				}
				return true
			},
			Do:     adventure(w, dome, nil),
			Outfit: wearTalisman,
			Limit:  scheduler.Limit{Soft: 20},
		},
		{
			Name:      "Alarm Gem",
			After:     []string{"Palindome Photos"},
			Completed: palindomeDone,
			Do: func(ctx context.Context, ev scheduler.EventSource) error {
				if w.Have(loveMe) {
					if err := w.Use(ctx, loveMe, 1); err != nil {
						return err
					}
				}
				for _, url := range []string{
					"place.php?whichplace=palindome&action=pal_droffice",
					"choice.php?whichchoice=872&option=1&photo1=2259&photo2=7264&photo3=7263&photo4=7265",
				} {
					if err := w.Visit(ctx, url); err != nil {
						return err
					}
				}
				if err := w.Use(ctx, loveMe2, 1); err != nil {
					return err
				}
				for _, url := range []string{
					"place.php?whichplace=palindome&action=pal_mroffice",
					"clan_viplounge.php?action=hottub",
				} {
					if err := w.Visit(ctx, url); err != nil {
						return err
					}
				}
				return w.CLI(ctx, "uneffect Beaten Up")
			},
			Outfit:     scheduler.Outfit{Equip: []string{talisman}},
			Limit:      scheduler.Limit{Tries: 1},
			FreeAction: true,
		},
		{
			Name:      "Open Alarm",
			After:     []string{"Alarm Gem"},
			Completed: stepAtLeast(w, "questL11Palindome", 5),
			Do: func(ctx context.Context, ev scheduler.EventSource) error {
				if !w.Have("wet stunt nut stew") {
					if err := w.Create(ctx, "wet stunt nut stew"); err != nil {
						return err
					}
				}
				return w.Visit(ctx, "place.php?whichplace=palindome&action=pal_mrlabel")
			},
			Outfit:     scheduler.Outfit{Equip: []string{talisman}},
			Limit:      scheduler.Limit{Tries: 1},
			FreeAction: true,
		},
	}
}

// Palindome is the level 11 Palindome quest: Shen's snakes, the Red
// Zeppelin, and Dr. Awkward.
func Palindome(w World) scheduler.Quest {
	tasks := copperhead(w)
	tasks = append(tasks, zeppelin(w)...)
	tasks = append(tasks, domeTasks(w)...)
	tasks = append(tasks, &scheduler.Task{
		Name:      "Boss",
		After:     []string{"Open Alarm"},
		Completed: func() bool { return w.Step("questL11Palindome") == finished },
		Do: func(ctx context.Context, ev scheduler.EventSource) error {
			if err := w.Visit(ctx, "place.php?whichplace=palindome&action=pal_drlabel"); err != nil {
				return err
			}
			return w.CLI(ctx, "choice 1")
		},
		Outfit: scheduler.Outfit{Equip: []string{talisman, "Mega Gem"}},
		Boss:   true,
		Limit:  scheduler.Limit{Tries: 1},
	})
	return scheduler.Quest{Name: "Palindome", Tasks: tasks}
}
