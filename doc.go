// Package circle is the Circle social backend.

// The API server and tools live under cmd/. Everything else is organized
// into internal packages:

// - internal/social: follow, like and bookmark toggles with their counters
// - internal/counters: which counters each relationship change moves
// - internal/comments: comment threads and their reply trees
// - internal/posts: post lifecycle
// - internal/audit: counter verification and repair
// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/middleware: HTTP middleware (auth, rate limiting, metrics)
// - internal/models: Data models and database schemas
// - internal/database: Database connection and migrations
// - internal/repository: User lookups and profile edits
// - internal/auth: Access token signing and validation
// - internal/seed: Fake data for development

// See the individual package documentation for detailed API reference.
package circle
