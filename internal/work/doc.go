// Package work provides the catalog of named units of work that can be
// submitted to the task manager by kind, for example over HTTP.
//
// Each kind maps to a task.CallFunc. Catalog.Build binds the caller's
// arguments to that function and returns the result as a task.Work.
package work
