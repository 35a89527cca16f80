package actions

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"

	"terminator/internal/ports"
)

type Clipboard struct{}

func (Clipboard) Read() (string, error) {
	if clipboard.Unsupported {
		return "", fmt.Errorf("clipboard: %w", ports.ErrNotConfigured)
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("clipboard: %w", err)
	}
	return strings.TrimSpace(text), nil
}
