// Package integrity checks the health of the storage layout and the database.
//
// # Checks Provided
//
//   - Layout: the pending, processed and unprocessed prefixes exist in the bucket.
//   - Backlog: no file has been sitting under the pending prefix for longer than
//     integrity.backlog_age, which usually means its notification was lost.
//   - Schema: every table has the columns its gorm model maps to.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/layout : Runs the layout check (supports ?fix=true).
//   - GET /integrity/backlog : Runs the backlog check (supports ?olderThan=30m).
//   - GET /integrity/schema : Runs the schema check.
package integrity
