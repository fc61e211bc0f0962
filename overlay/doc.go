// Package overlay implements a copy-on-write store on top of a read-only
// backend. Writes, zero fills and truncations never reach the backend;
// they are captured in an in-memory set of fixed size pages. Reads merge
// the backend's bytes with those pages, where a page always wins.
//
// A page is either absent or present. An absent page defers to the backend
// (or to zeros beyond the backend's size). A present page holds the current
// content of its whole range. Pages are materialized lazily: the first
// mutation of a page copies the backend's bytes for it exactly once.
//
// The store keeps two sizes: the original size of the backend, captured once
// on open, and the logical size, which grows on writes past the end and
// shrinks on deletes that reach the end. Reading at or beyond the logical
// size is an error.
//
// Nothing is ever written back. Dropping the store drops all modifications.
//
// Concurrency: all methods may be called from several goroutines. Backend
// reads happen without holding the store lock, so two goroutines touching
// the same absent page may both read it from the backend; only the first
// one installs its copy and both then modify the installed page.
// Writes or deletes spanning several pages are not atomic.
//
// NOTE: All page offsets and page indices are int64, just like store offsets.
package overlay
