package actions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// NoteFile is the append-only note log. Each note is one line:
//
//	[2006-01-02 15:04:05] text
type NoteFile struct {
	Path string
	Now  func() time.Time

	mu sync.Mutex
}

func (n *NoteFile) Append(text string) error {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return errors.New("empty note")
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	line := fmt.Sprintf("[%s] %s\n", now().Format(time.DateTime), text)

	n.mu.Lock()
	defer n.mu.Unlock()

	if dir := filepath.Dir(n.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(n.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open notes: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("write note: %w", err)
	}
	return f.Close()
}
