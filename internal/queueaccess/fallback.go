package queueaccess

import (
	"fmt"

	"courier/internal/ipc"
	"courier/internal/queue"
)

// Session represents a queue access handle and its cleanup function.
type Session struct {
	Access Access
	// Direct reports that the session bypassed the agent and operates on the
	// store directly. Direct sessions cannot trigger sweeps.
	Direct bool

	close func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback tries IPC-backed access first, then falls back to direct
// store access so queue commands keep working while the agent is stopped.
func OpenWithFallback(
	dial func() (*ipc.Client, error),
	openQueue func() (*queue.Manager, func() error, error),
) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{
				Access: NewIPCAccess(client),
				close:  client.Close,
			}, nil
		}
	}

	if openQueue == nil {
		return Session{}, fmt.Errorf("open queue: no direct opener configured")
	}
	manager, closeFn, err := openQueue()
	if err != nil {
		return Session{}, fmt.Errorf("open queue: %w", err)
	}
	return Session{
		Access: NewStoreAccess(manager),
		Direct: true,
		close:  closeFn,
	}, nil
}
