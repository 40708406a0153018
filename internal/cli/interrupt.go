package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels a running operation on Ctrl-C and tells the user
// that the pending database work was rolled back.
type InterruptHandler struct {
	writer      io.Writer
	signals     chan os.Signal
	operation   string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a new interrupt handler.
func NewInterruptHandler(writer io.Writer) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{
		writer:  writer,
		signals: make(chan os.Signal, 1),
	}
}

// HandleInterrupts returns a context canceled on SIGINT or SIGTERM. The
// returned stop function releases the signal handler and must be called.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	h.operation = operation

	signal.Notify(h.signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-h.signals:
			h.mu.Lock()
			if !h.interrupted {
				h.interrupted = true
				h.showInterruptMessage()
			}
			h.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(h.signals)
		cancel()
	}
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning(h.operation+" interrupted!") +
		"\n" + FormatInfo("No pending changes were saved.") + "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		// Best effort - we're shutting down anyway
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the process was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
