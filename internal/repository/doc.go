// Package repository groups the blog.Repository implementations:
//
//   - memory: in-process maps, used in development and tests
//   - sqlite: database/sql over modernc.org/sqlite
//   - redis: JSON documents and sorted sets in Redis
//
// and the decorators layered on top of them:
//
//   - cached: read-through cache invalidated on every write
//   - guarded: per-operation circuit breakers
package repository
