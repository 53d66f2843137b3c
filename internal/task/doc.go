// Package task implements a single-consumer, in-memory task queue.
//
// Callers build a Task around a unit of Work and submit it to a Manager. The
// Manager registers the task, records its place in line and hands it to one
// processing loop (Manager.Run) that executes tasks strictly one at a time in
// submission order. Status, result and lifecycle timestamps are recorded on
// the Task, which callers may poll at any time through Manager.Get.
//
// Nothing is persisted and nothing is evicted: the registry keeps every task
// for the lifetime of its Manager, so memory grows with the number of
// submissions.
package task
