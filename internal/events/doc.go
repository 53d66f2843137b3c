// Package events carries task lifecycle notifications from the queue to
// interested components without the queue knowing who listens.
//
// The primary components are:
// - TaskEvent: a single status transition of a task
// - EventHandler: interface for components that react to transitions
// - EventEmitter: interface for components that publish transitions
package events
