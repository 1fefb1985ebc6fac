package session

import "errors"

var (
	// ErrNotFound indicates the requested session does not exist in the store.
	ErrNotFound = errors.New("session not found")

	// ErrCorruptStore indicates the on-disk snapshot could not be decoded.
	// This is fatal at startup: serving on top of unreliable persistence
	// would silently discard history.
	ErrCorruptStore = errors.New("corrupt session store")

	// ErrPersistence indicates a snapshot flush failed. The in-memory state
	// has been rolled back to match the last durable snapshot; the caller
	// may retry.
	ErrPersistence = errors.New("session persistence failure")

	// ErrLocked indicates another process holds the snapshot lock.
	ErrLocked = errors.New("session store locked by another process")
)
