// Package clipboard copies text to the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is available.
var ErrUnsupported = errors.New("clipboard unsupported")

// System is the OS clipboard. Each Copy runs the platform copy command to
// completion, so nothing stays held between calls.
type System struct {
	write func(string) error
}

// New returns the system clipboard, or ErrUnsupported when the platform
// has no clipboard utility.
func New() (*System, error) {
	if clipboard.Unsupported {
		return nil, ErrUnsupported
	}
	return &System{write: clipboard.WriteAll}, nil
}

// Copy places text on the clipboard.
func (s *System) Copy(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
