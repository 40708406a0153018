package cli

import (
	"bytes"
	"testing"

	"github.com/Veraticus/financas/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestCopyProgressBar(t *testing.T) {
	var out bytes.Buffer
	bar := NewCopyProgressBar(&out)

	events := make(chan service.CopyProgress, 4)
	events <- service.CopyProgress{Step: 1, Total: 3, Message: "cleared dev"}
	events <- service.CopyProgress{Step: 2, Total: 3, Table: "categorias", Rows: 7, Message: "copied categorias"}
	events <- service.CopyProgress{Step: 3, Total: 3, Message: "verified row counts"}
	events <- service.CopyProgress{Step: 3, Total: 3, Done: true, Message: "done"}
	close(events)

	bar.Run(events)

	assert.True(t, bar.Last().Done)
	assert.Contains(t, out.String(), "3/3")
}

func TestCopyProgressBarNoEvents(t *testing.T) {
	var out bytes.Buffer
	bar := NewCopyProgressBar(&out)

	events := make(chan service.CopyProgress)
	close(events)
	bar.Run(events)

	assert.False(t, bar.Last().Done)
	assert.Empty(t, out.String())
}
