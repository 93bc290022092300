package scheduler

import (
	"fmt"
	"strings"
)

// Flatten qualifies every quest task as "Quest/Task" and returns the tasks in
// quest order. Dependencies without a "/" refer to a task in the same quest;
// qualified dependencies are kept as written.
//
// The input quests are not modified.
func Flatten(quests []Quest) ([]*Task, error) {
	var out []*Task
	seen := make(map[string]struct{})

	for _, quest := range quests {
		if quest.Name == "" {
			return nil, fmt.Errorf("quest with %d tasks has no name", len(quest.Tasks))
		}
		for _, task := range quest.Tasks {
			if task == nil {
				return nil, fmt.Errorf("quest %q contains a nil task", quest.Name)
			}

			qualified := cloneTask(task)
			qualified.Name = qualify(quest.Name, task.Name)
			for i, dep := range qualified.After {
				qualified.After[i] = qualify(quest.Name, dep)
			}

			if _, exists := seen[qualified.Name]; exists {
				return nil, &StructuralError{Reason: "duplicate task name", Tasks: []string{qualified.Name}}
			}
			seen[qualified.Name] = struct{}{}
			out = append(out, qualified)
		}
	}

	return out, nil
}

// FindQuest returns the quest name and task index for a qualified task name.
// Returns empty string and -1 if not found.
func FindQuest(quests []Quest, name string) (string, int) {
	questName, taskName, ok := strings.Cut(name, "/")
	if !ok {
		return "", -1
	}
	for _, quest := range quests {
		if quest.Name != questName {
			continue
		}
		for i, task := range quest.Tasks {
			if task.Name == taskName {
				return quest.Name, i
			}
		}
	}
	return "", -1
}

func qualify(quest, name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return quest + "/" + name
}
