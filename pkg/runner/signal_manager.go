package runner

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalManager turns OS interrupts (SIGINT, SIGTERM) into runner interrupts.
// Unlike signal.NotifyContext it keeps listening after the first signal, so
// a first Ctrl+C can cancel an execution and a second one can leave.
type SignalManager struct {
	sigs chan os.Signal
	out  chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSignalManager creates a new manager and immediately starts listening for signals.
func NewSignalManager() *SignalManager {
	sm := &SignalManager{
		sigs: make(chan os.Signal, 1),
		out:  make(chan struct{}),
		done: make(chan struct{}),
	}
	signal.Notify(sm.sigs, os.Interrupt, syscall.SIGTERM)
	go sm.forward()
	return sm
}

// Interrupts delivers one value per received signal. Signals arriving while
// the previous one is still undelivered are merged.
func (sm *SignalManager) Interrupts() <-chan struct{} {
	return sm.out
}

// Stop permanently stops the signal listener.
func (sm *SignalManager) Stop() {
	sm.once.Do(func() {
		signal.Stop(sm.sigs)
		close(sm.done)
	})
}

func (sm *SignalManager) forward() {
	for {
		select {
		case <-sm.done:
			return
		case <-sm.sigs:
		}
		select {
		case sm.out <- struct{}{}:
		case <-sm.done:
			return
		}
	}
}
