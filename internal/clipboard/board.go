package clipboard

import (
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
)

// Board is where copied content is kept between copy and paste
type Board interface {
	WriteText(text string) error
	ReadText() (string, error)
}

// MemoryBoard keeps the content in process
type MemoryBoard struct {
	mu   sync.Mutex
	text string
}

func NewMemoryBoard() *MemoryBoard {
	return &MemoryBoard{}
}

func (b *MemoryBoard) WriteText(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	return nil
}

func (b *MemoryBoard) ReadText() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text, nil
}

// SystemBoard shares the content through the operating system clipboard
type SystemBoard struct{}

// NewSystemBoard fails when no clipboard utility is available
func NewSystemBoard() (*SystemBoard, error) {
	if clipboard.Unsupported {
		return nil, fmt.Errorf("system clipboard is not supported on this platform")
	}
	return &SystemBoard{}, nil
}

func (SystemBoard) WriteText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write system clipboard: %w", err)
	}
	return nil
}

func (SystemBoard) ReadText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read system clipboard: %w", err)
	}
	return text, nil
}
