package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestNewInterruptHandler(t *testing.T) {
	tests := []struct {
		writer io.Writer
		name   string
	}{
		{
			name:   "with custom writer",
			writer: &bytes.Buffer{},
		},
		{
			name:   "with nil writer",
			writer: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInterruptHandler(tt.writer)
			assert.NotNil(t, handler)
			assert.NotNil(t, handler.writer)
			assert.False(t, handler.interrupted)
		})
	}
}

func TestHandleInterrupts_Signal(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)

	ctx, stop := handler.HandleInterrupts(context.Background(), "Copy")
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("Context should not be canceled initially")
	default:
	}

	handler.signals <- os.Interrupt

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Context should be canceled after an interrupt")
	}

	require.Eventually(t, handler.WasInterrupted, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, strings.Count(output.String(), "Copy interrupted!"))
	assert.Contains(t, output.String(), "No pending changes were saved.")
}

func TestHandleInterrupts_Stop(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output)

	ctx, stop := handler.HandleInterrupts(context.Background(), "Copy")
	stop()

	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, output.String())
}

func TestShowInterruptMessage(t *testing.T) {
	var output bytes.Buffer
	handler := &InterruptHandler{writer: &output, operation: "Import"}

	handler.showInterruptMessage()

	assert.Contains(t, output.String(), "Import interrupted!")
}
