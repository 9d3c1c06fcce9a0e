package app

import (
	"context"
	"sync"

	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// lateEmitter forwards to an emitter bound after the store opens. The
// notification emitter writes through the store it is attached to.
type lateEmitter struct {
	mu     sync.RWMutex
	target storage.EventEmitter
}

func (l *lateEmitter) bind(target storage.EventEmitter) {
	l.mu.Lock()
	l.target = target
	l.mu.Unlock()
}

func (l *lateEmitter) Emit(ctx context.Context, evt event.Event) error {
	l.mu.RLock()
	target := l.target
	l.mu.RUnlock()
	if target == nil {
		return nil
	}
	return target.Emit(ctx, evt)
}
