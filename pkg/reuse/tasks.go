package reuse

import "github.com/go-drift/listkit/pkg/errors"

// TaskQueue holds bookkeeping deferred to the next cycle boundary, so cell
// state is never mutated while the surface is in the middle of a layout
// pass. It is drained from the UI thread only.
type TaskQueue struct {
	tasks []func()
}

// Schedule appends a task. Tasks scheduled while draining run on the next
// drain.
func (q *TaskQueue) Schedule(task func()) {
	if task == nil {
		return
	}
	q.tasks = append(q.tasks, task)
}

// Len returns the number of pending tasks.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}

// Drain runs every pending task in scheduling order and returns how many
// ran. A panicking task is reported and does not stop the others.
func (q *TaskQueue) Drain() int {
	tasks := q.tasks
	q.tasks = nil
	for _, task := range tasks {
		runTask(task)
	}
	return len(tasks)
}

func runTask(task func()) {
	defer errors.Recover("reuse.TaskQueue")
	task()
}
