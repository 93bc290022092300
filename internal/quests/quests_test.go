package quests

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/questloop/internal/scheduler"
)

type fakeWorld struct {
	steps    map[string]int
	items    map[string]int
	skills   map[string]bool
	props    map[string]string
	turns    map[string]int
	commands []string
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		steps:  map[string]int{},
		items:  map[string]int{},
		skills: map[string]bool{},
		props:  map[string]string{},
		turns:  map[string]int{},
	}
}

func (w *fakeWorld) Step(quest string) int {
	if step, ok := w.steps[quest]; ok {
		return step
	}
	return -1
}

func (w *fakeWorld) Have(item string) bool          { return w.items[item] > 0 }
func (w *fakeWorld) HasSkill(skill string) bool     { return w.skills[skill] }
func (w *fakeWorld) Property(name string) string    { return w.props[name] }
func (w *fakeWorld) BoolProperty(name string) bool  { return w.props[name] == "true" }
func (w *fakeWorld) TurnsSpent(location string) int { return w.turns[location] }

func (w *fakeWorld) IntProperty(name string) int {
	n, _ := strconv.Atoi(w.props[name])
	return n
}

func (w *fakeWorld) Adventure(ctx context.Context, location string, choices map[int]int) error {
	w.turns[location]++
	w.commands = append(w.commands, "adventure "+location)
	return nil
}

func (w *fakeWorld) Create(ctx context.Context, item string) error {
	w.items[item]++
	w.commands = append(w.commands, "create "+item)
	return nil
}

func (w *fakeWorld) Use(ctx context.Context, item string, n int) error {
	w.items[item] -= n
	w.commands = append(w.commands, fmt.Sprintf("use %d %s", n, item))
	return nil
}

func (w *fakeWorld) Visit(ctx context.Context, url string) error {
	w.commands = append(w.commands, "visit "+url)
	return nil
}

func (w *fakeWorld) CLI(ctx context.Context, line string) error {
	w.commands = append(w.commands, "cli "+line)
	return nil
}

func findTask(t *testing.T, tasks []*scheduler.Task, name string) *scheduler.Task {
	t.Helper()
	for _, task := range tasks {
		if task.Name == name {
			return task
		}
	}
	t.Fatalf("task %s not found", name)
	return nil
}

func TestAllPrioritizes(t *testing.T) {
	tasks, err := scheduler.Flatten(All(newFakeWorld()))
	require.NoError(t, err)

	route, err := scheduler.Prioritize(tasks)
	require.NoError(t, err)

	names := route.Names()
	pos := func(name string) int {
		i := slices.Index(names, name)
		require.GreaterOrEqual(t, i, 0, "missing %s", name)
		return i
	}

	assert.Less(t, pos("Macguffin/Diary"), pos("Palindome/Copperhead Start"))
	assert.Less(t, pos("Macguffin/Diary"), pos("Palindome/Protesters Start"))
	assert.Less(t, pos("Bat/Use Sonar"), pos("Palindome/Bat Snake"))
	assert.Less(t, pos("Giant/Unlock HITS"), pos("Palindome/Sleaze Star Snake"))
	assert.Less(t, pos("Palindome/Zepplin"), pos("Palindome/Talisman"))
	assert.Equal(t, "Palindome/Boss", names[len(names)-1])
}

func TestShenItem(t *testing.T) {
	tests := []struct {
		name string
		item string
		step int
		want bool
	}{
		{"wanted on an odd step", "The First Pizza", 3, true},
		{"other item", "The Eye of the Stars", 3, false},
		{"step waiting on Copperhead", "The First Pizza", 2, false},
		{"quest finished", "The First Pizza", 999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWorld()
			w.props["shenQuestItem"] = "The First Pizza"
			w.steps["questL11Shen"] = tt.step
			assert.Equal(t, tt.want, shenItem(w, tt.item))
		})
	}
}

func TestSnakeTasks(t *testing.T) {
	w := newFakeWorld()
	tasks := Palindome(w).Tasks
	cold := findTask(t, tasks, "Cold Snake")

	assert.Equal(t, []string{"Copperhead Start", "McLargeHuge/Ores"}, cold.After)
	assert.Equal(t, 10, cold.Limit.Soft)
	assert.Equal(t, 5, cold.Delay)

	w.props["shenQuestItem"] = "The First Pizza"
	w.steps["questL11Shen"] = 1
	assert.True(t, cold.IsReady())
	assert.False(t, cold.IsCompleted())

	require.NoError(t, cold.Do(context.Background(), nil))
	assert.Equal(t, 1, cold.TurnsSpent())

	w.items["The First Pizza"] = 1
	assert.True(t, cold.IsCompleted())
}

func TestHotSnakeDependsOnCastle(t *testing.T) {
	w := newFakeWorld()
	tasks := Palindome(w).Tasks
	pre := findTask(t, tasks, "Hot Snake Precastle")
	post := findTask(t, tasks, "Hot Snake Postcastle")

	w.props["shenQuestItem"] = "Murphy's Rancid Black Flag"
	w.steps["questL11Shen"] = 5
	w.steps["questL10Garbage"] = 9
	assert.True(t, pre.IsReady())
	assert.False(t, post.IsReady())

	w.steps["questL10Garbage"] = 10
	assert.False(t, pre.IsReady())
	assert.True(t, post.IsReady())
}

func TestProtestersPrepare(t *testing.T) {
	w := newFakeWorld()
	protesters := findTask(t, Palindome(w).Tasks, "Protesters")

	w.skills["Bend Hell"] = true
	w.items["11-leaf clover"] = 1
	require.NoError(t, protesters.Prepare(context.Background()))
	assert.Equal(t, []string{"cli cast 1 Bend Hell", "use 1 11-leaf clover"}, w.commands)

	w.commands = nil
	w.props["zeppelinProtestors"] = "80"
	require.NoError(t, protesters.Prepare(context.Background()))
	assert.Empty(t, w.commands)
	assert.True(t, protesters.IsCompleted())
}

func TestZepplinCableUseful(t *testing.T) {
	w := newFakeWorld()
	zep := findTask(t, Palindome(w).Tasks, "Zepplin")
	require.Len(t, zep.Acquire, 2)

	cable := zep.Acquire[0]
	assert.Equal(t, "glark cable", cable.Item)
	assert.True(t, cable.Useful())

	w.props["_glarkCableUses"] = "5"
	assert.False(t, cable.Useful())
}

func TestAlarmGem(t *testing.T) {
	w := newFakeWorld()
	gem := findTask(t, Palindome(w).Tasks, "Alarm Gem")
	w.items[loveMe] = 1

	require.NoError(t, gem.Do(context.Background(), nil))
	require.Len(t, w.commands, 7)
	assert.Equal(t, "use 1 "+loveMe, w.commands[0])
	assert.Equal(t, "use 1 "+loveMe2, w.commands[3])
	assert.Equal(t, "cli uneffect Beaten Up", w.commands[6])

	assert.False(t, gem.IsCompleted())
	w.steps["questL11Palindome"] = 3
	assert.True(t, gem.IsCompleted())
}

func TestBoss(t *testing.T) {
	w := newFakeWorld()
	boss := findTask(t, Palindome(w).Tasks, "Boss")

	assert.True(t, boss.Boss)
	assert.Equal(t, []string{talisman, "Mega Gem"}, boss.Outfit.Equip)
	require.NoError(t, boss.Do(context.Background(), nil))
	assert.Equal(t, "cli choice 1", w.commands[1])
}

func TestRunComplete(t *testing.T) {
	w := newFakeWorld()
	assert.False(t, RunComplete(w))

	w.steps["questL13Final"] = finished
	assert.False(t, RunComplete(w))

	w.skills["Liver of Steel"] = true
	assert.True(t, RunComplete(w))
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name  string
		step  int
		visit bool
	}{
		{"before the prism", 11, false},
		{"at the prism", 12, true},
		{"already finished", finished, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWorld()
			w.steps["questL13Final"] = tt.step
			require.NoError(t, Finalize(w)(context.Background()))
			if tt.visit {
				assert.Equal(t, []string{"visit place.php?whichplace=nstower&action=ns_11_prism"}, w.commands)
			} else {
				assert.Empty(t, w.commands)
			}
		})
	}
}
