package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/questloop/internal/quests"
	"github.com/aristath/questloop/internal/scheduler"
)

// NewRouteCommand creates the route command.
func NewRouteCommand(rootOpts *RootOptions) *cobra.Command {
	var questName string

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Print the prioritized task order",
		Long: `Print every task in the order the run considers them, with its
dependencies and limits. Predicates are not evaluated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Building the route never evaluates predicates, so no world is needed.
			all := quests.All(nil)
			if questName != "" {
				all = selectQuest(all, questName)
				if all == nil {
					return fmt.Errorf("unknown quest %q", questName)
				}
			}

			tasks, err := scheduler.Flatten(all)
			if err != nil {
				return err
			}
			if questName != "" {
				tasks = dropForeignDeps(tasks)
			}
			route, err := scheduler.Prioritize(tasks)
			if err != nil {
				return err
			}
			return RenderRoute(cmd.OutOrStdout(), route)
		},
	}

	cmd.Flags().StringVarP(&questName, "quest", "q", "", "only list one quest's tasks")
	return cmd
}

func selectQuest(all []scheduler.Quest, name string) []scheduler.Quest {
	for _, q := range all {
		if q.Name == name {
			return []scheduler.Quest{q}
		}
	}
	return nil
}

// dropForeignDeps removes dependencies on tasks outside the listed set.
func dropForeignDeps(tasks []*scheduler.Task) []*scheduler.Task {
	known := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		known[task.Name] = true
	}
	for _, task := range tasks {
		deps := task.After[:0]
		for _, dep := range task.After {
			if known[dep] {
				deps = append(deps, dep)
			}
		}
		task.After = deps
	}
	return tasks
}
