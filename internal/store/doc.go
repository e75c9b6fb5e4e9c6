// Package store provides SQLite-backed storage for door credentials and
// the access audit log.
//
// Tables:
//   - users: one row per enrolled token, with a bcrypt hash of the PIN
//   - access_events: append-only log of access decisions
//
// # Critical Patterns
//
// Tokens are normalized before every lookup and write (NFKC, trimmed,
// upper-cased), so a reader that reports "04a3f2" and one that reports
// "04A3F2 " resolve to the same user.
//
// PINs never touch the database in clear text. Verification compares
// against the bcrypt hash; a missing user and a wrong PIN are
// indistinguishable to callers.
//
// access_events ordering uses seq INTEGER (assigned on insert), never
// timestamps. Queries order by seq ASC, id ASC COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
