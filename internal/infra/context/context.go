// Package context carries request-scoped values (trace ID, authenticated
// session) through the layers of the service.
package context

type contextKey string
