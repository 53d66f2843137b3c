// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting for the task queue. It acts as an adapter between
// external clients and the in-process task manager, translating HTTP
// concerns to Submit, Get and Position calls.
package api
