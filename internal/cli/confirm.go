package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmationPhrase must be typed literally before data is destroyed.
const ConfirmationPhrase = "CONFIRMAR"

// Confirmer asks yes/no questions on a terminal.
type Confirmer struct {
	reader *NonBlockingReader
	writer io.Writer
}

// NewConfirmer creates a confirmer reading answers from reader.
func NewConfirmer(reader io.Reader, writer io.Writer) *Confirmer {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Confirmer{
		reader: NewNonBlockingReader(reader),
		writer: writer,
	}
}

// Confirm asks prompt and reports whether the answer was yes. Anything other
// than y/yes (or s/sim), including no input at all, counts as no.
func (c *Confirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	answer, err := c.ask(ctx, prompt+" [y/N]")
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "s", "sim", "y", "yes":
		return true, nil
	}
	return false, nil
}

// ConfirmPhrase asks the user to type phrase exactly.
func (c *Confirmer) ConfirmPhrase(ctx context.Context, prompt, phrase string) (bool, error) {
	answer, err := c.ask(ctx, fmt.Sprintf("%s (type %s to continue)", prompt, phrase))
	if err != nil {
		return false, err
	}
	return answer == phrase, nil
}

func (c *Confirmer) ask(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(c.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	answer, err := c.reader.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if errors.Is(err, ErrInputCancelled) {
		return "", ctx.Err()
	}
	return answer, err
}
