// Package store keeps the recent QC activity log in memory. Every event the
// API publishes is recorded with its arrival time and evicted after a TTL;
// GET /api/v1/events reads it back newest first.
package store
