// Package session binds browser sessions to Registry Views.
//
// A session is identified by a ULID carried in a cookie. Each session owns one
// registry.View plus a bounded outbox of toasts. Sessions live in an
// expirable LRU: the least recently used session is dropped at capacity, and
// any session idle for longer than the TTL expires.
package session
