package scheduler

import (
	"container/heap"
	"fmt"

	"github.com/gammazero/toposort"
)

// Route is the prioritized task sequence. Dependencies are resolved once into
// positions within the sequence so eligibility checks never look names up.
type Route struct {
	tasks []*Task
	deps  [][]int       // position -> positions of its After tasks
	index map[*Task]int // task -> position
}

// Prioritize orders tasks so every task appears after all of its
// dependencies. Tasks with no ordering constraint between them keep their
// input order, so registry order acts as a secondary priority.
//
// Duplicate names, dependencies on unknown tasks and dependency cycles are
// reported as a *StructuralError.
func Prioritize(tasks []*Task) (*Route, error) {
	byName := make(map[string]int, len(tasks))
	for i, task := range tasks {
		if task == nil {
			return nil, &StructuralError{Reason: "nil task", Tasks: []string{fmt.Sprintf("#%d", i)}}
		}
		if _, exists := byName[task.Name]; exists {
			return nil, &StructuralError{Reason: "duplicate task name", Tasks: []string{task.Name}}
		}
		byName[task.Name] = i
	}

	// Verify all dependencies exist
	inputDeps := make([][]int, len(tasks))
	for i, task := range tasks {
		for _, dep := range task.After {
			j, exists := byName[dep]
			if !exists {
				return nil, &StructuralError{
					Reason: fmt.Sprintf("task %q depends on non-existent task %q", task.Name, dep),
					Tasks:  []string{task.Name},
				}
			}
			inputDeps[i] = append(inputDeps[i], j)
		}
	}

	if err := checkAcyclic(tasks); err != nil {
		return nil, &StructuralError{Reason: "dependency cycle", Tasks: cycleMembers(tasks, inputDeps)}
	}

	order := stableOrder(inputDeps)
	if len(order) != len(tasks) {
		return nil, &StructuralError{Reason: "dependency cycle", Tasks: cycleMembers(tasks, inputDeps)}
	}

	position := make([]int, len(tasks))
	for pos, i := range order {
		position[i] = pos
	}

	r := &Route{
		tasks: make([]*Task, len(tasks)),
		deps:  make([][]int, len(tasks)),
		index: make(map[*Task]int, len(tasks)),
	}
	for pos, i := range order {
		r.tasks[pos] = tasks[i]
		r.index[tasks[i]] = pos
		for _, j := range inputDeps[i] {
			r.deps[pos] = append(r.deps[pos], position[j])
		}
	}
	return r, nil
}

// Tasks returns the tasks in route order.
func (r *Route) Tasks() []*Task {
	return append([]*Task(nil), r.tasks...)
}

// Len returns the number of tasks on the route.
func (r *Route) Len() int {
	return len(r.tasks)
}

// At returns the task at the given route position.
func (r *Route) At(pos int) *Task {
	return r.tasks[pos]
}

// Position returns the route position of a task.
func (r *Route) Position(task *Task) (int, bool) {
	pos, ok := r.index[task]
	return pos, ok
}

// Names returns task names in route order.
func (r *Route) Names() []string {
	names := make([]string, len(r.tasks))
	for i, task := range r.tasks {
		names[i] = task.Name
	}
	return names
}

// Incomplete returns the tasks whose completion predicate is still false, in
// route order.
func (r *Route) Incomplete() []*Task {
	var out []*Task
	for _, task := range r.tasks {
		if !task.IsCompleted() {
			out = append(out, task)
		}
	}
	return out
}

// checkAcyclic runs the task graph through a topological sort and fails if
// any edge closes a cycle.
func checkAcyclic(tasks []*Task) error {
	var edges []toposort.Edge
	for _, task := range tasks {
		if len(task.After) == 0 {
			// Task with no dependencies - add edge from nil to ensure it's included
			edges = append(edges, toposort.Edge{nil, task.Name})
			continue
		}
		for _, dep := range task.After {
			// Edge (dep, task) means dep must come before task
			edges = append(edges, toposort.Edge{dep, task.Name})
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("task graph contains cycle: %w", err)
	}
	return nil
}

// stableOrder is Kahn's algorithm that always emits the lowest input index
// among the tasks whose dependencies have all been emitted.
func stableOrder(deps [][]int) []int {
	indegree := make([]int, len(deps))
	dependents := make([][]int, len(deps))
	for i, ds := range deps {
		for _, d := range ds {
			indegree[i]++
			dependents[d] = append(dependents[d], i)
		}
	}

	ready := &intHeap{}
	for i, n := range indegree {
		if n == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]int, 0, len(deps))
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		order = append(order, i)
		for _, dependent := range dependents[i] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}
	return order
}

// cycleMembers names the tasks that sit on (or between) dependency cycles:
// everything left after repeatedly peeling off tasks with no unresolved
// dependencies and tasks nothing unresolved depends on.
func cycleMembers(tasks []*Task, deps [][]int) []string {
	alive := make([]bool, len(tasks))
	for i := range alive {
		alive[i] = true
	}

	for changed := true; changed; {
		changed = false
		dependedOn := make([]bool, len(tasks))
		for i, ds := range deps {
			if !alive[i] {
				continue
			}
			for _, d := range ds {
				if alive[d] {
					dependedOn[d] = true
				}
			}
		}
		for i, ds := range deps {
			if !alive[i] {
				continue
			}
			hasLiveDep := false
			for _, d := range ds {
				if alive[d] {
					hasLiveDep = true
					break
				}
			}
			if !hasLiveDep || !dependedOn[i] {
				alive[i] = false
				changed = true
			}
		}
	}

	var names []string
	for i, ok := range alive {
		if ok {
			names = append(names, tasks[i].Name)
		}
	}
	return names
}

type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
