// Package storage is dealbot's persistence layer: users and their
// subscription state, cart items, keyword alerts, and the write-once
// broadcast audit log. Backed by SQLite.
package storage
