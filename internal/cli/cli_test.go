package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/questloop/internal/config"
	"github.com/aristath/questloop/internal/orchestrator"
	"github.com/aristath/questloop/internal/scheduler"
)

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "questloop", cmd.Use)

	for _, name := range []string{"run", "route", "simulate"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "false", verboseFlag.DefValue)

	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, runCmd.Flags().Lookup("tui"))
}

func TestRenderRouteGolden(t *testing.T) {
	quests := []scheduler.Quest{
		{Name: "Bat", Tasks: []*scheduler.Task{
			{Name: "Use Sonar", Limit: scheduler.Limit{Tries: 3}, FreeAction: true},
		}},
		{Name: "Macguffin", Tasks: []*scheduler.Task{
			{Name: "Forest", Limit: scheduler.Limit{Soft: 15}, Delay: 5},
			{Name: "Diary", After: []string{"Forest"}, Limit: scheduler.Limit{Tries: 3}},
		}},
		{Name: "Palindome", Tasks: []*scheduler.Task{
			{Name: "Copperhead Start", After: []string{"Macguffin/Diary"}, Limit: scheduler.Limit{Tries: 1}},
			{Name: "Bat Snake", After: []string{"Copperhead Start", "Bat/Use Sonar"}, Limit: scheduler.Limit{Soft: 10}, Delay: 5},
			{Name: "Boss", After: []string{"Bat Snake"}, Limit: scheduler.Limit{Tries: 1}, Boss: true},
		}},
	}

	tasks, err := scheduler.Flatten(quests)
	require.NoError(t, err)
	route, err := scheduler.Prioritize(tasks)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderRoute(&buf, route))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "route", buf.Bytes())
}

func TestRouteCommand(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"route"})

	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 28, "header plus every quest task")
	assert.True(t, strings.HasPrefix(lines[0], "Route: "))
	assert.Contains(t, lines[len(lines)-1], "Palindome/Boss")
	assert.Contains(t, lines[len(lines)-1], "boss")
}

func TestRouteCommandSingleQuest(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"route", "--quest", "Giant"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Route: 2 tasks")
	assert.Contains(t, out.String(), "Giant/Unlock HITS")

	cmd = NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"route", "--quest", "Nope"})
	assert.Error(t, cmd.Execute())
}

func TestSimulateCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	scenario := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(scenario, []byte(`name: cli
budget: 3
tasks:
  - name: B
    after: [A]
  - name: A
`), 0644))

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"simulate", scenario, "--db", filepath.Join(dir, "sim.db")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "executed:  A > B")
	assert.Contains(t, out.String(), "Run complete")
	assert.Contains(t, out.String(), "2 used, 1 remaining")
	assert.FileExists(t, filepath.Join(dir, "sim.db"))
}

func TestSimulateCommandStall(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	scenario := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(scenario, []byte(`name: short
budget: 1
tasks:
  - name: A
  - name: B
`), 0644))

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"simulate", scenario})

	err := cmd.Execute()
	assert.True(t, scheduler.IsStallError(err))
	assert.Contains(t, out.String(), "1 tasks remaining:")
	assert.Contains(t, out.String(), "    B\n")
}

func TestRenderSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary orchestrator.Summary
		err     error
		want    []string
		notWant []string
	}{
		{
			name:    "already complete",
			summary: orchestrator.Summary{AlreadyComplete: true},
			want:    []string{"Run already complete"},
			notWant: []string{"adventures"},
		},
		{
			name: "success",
			summary: orchestrator.Summary{
				Used:       120,
				Remaining:  3,
				Ticks:      110,
				Executions: map[orchestrator.Phase]int{orchestrator.PhaseDefault: 100, orchestrator.PhaseWanderer: 10},
				Elapsed:    90 * time.Minute,
			},
			want: []string{"Run complete", "120 used, 3 remaining", "wanderer=10 default=100", "1h30m0s"},
		},
		{
			name: "hard limit with hint",
			err:  &scheduler.LimitError{Task: "Palindome/Protesters", Limit: 5, Message: "Maybe your available sleaze damage is too low."},
			want: []string{"Run stopped", "hint: Maybe your available sleaze damage"},
		},
		{
			name: "other failure",
			err:  errors.New("game status: broken pipe"),
			want: []string{"Run stopped: game status: broken pipe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			RenderSummary(&buf, tt.summary, tt.err)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, buf.String(), notWant)
			}
		})
	}
}

func TestGameConfigConversion(t *testing.T) {
	r := retryConfig(config.RetryConfig{InitialMillis: 5, Multiplier: 3})
	assert.Equal(t, 5*time.Millisecond, r.InitialInterval)
	assert.Equal(t, 3.0, r.Multiplier)
	assert.Equal(t, 10*time.Second, r.MaxInterval, "unset fields keep defaults")

	b := breakerConfig(config.BreakerConfig{OpenSeconds: 2})
	assert.Equal(t, 2*time.Second, b.Timeout)
	assert.Equal(t, uint32(5), b.ConsecutiveFails)
}

func TestRunFailsWithoutGame(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Game.Command = filepath.Join(t.TempDir(), "missing-game")
	cfg.State.Path = filepath.Join(t.TempDir(), "state.db")
	cfg.Retry = config.RetryConfig{InitialMillis: 1, MaxMillis: 1, MaxElapsedMillis: 1}

	var out, errOut bytes.Buffer
	err := runGame(context.Background(), cfg, "", "", &out, &errOut)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Run stopped")
}
