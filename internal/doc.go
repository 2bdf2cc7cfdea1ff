// Package internal holds the campus events server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - domain: business logic for users, events, and registrations
// - storage: pgx repositories and SQL migrations
// - email: transactional mail via Resend
// - auth, audit, config, metrics: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
