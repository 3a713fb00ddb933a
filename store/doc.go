// Package store implements the in-memory collection of settings a client
// owns or watches, along with the update/revert algorithm that applies a
// new text value to a setting's local buffer.
package store
