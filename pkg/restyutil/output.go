package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Output receives a rendered exchange per request.
type Output interface {
	Write(id string, contents string)
}

// DirOutput writes each exchange to its own file in a directory.
type DirOutput struct {
	directory string
}

func NewDirOutput(dir string) (DirOutput, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return DirOutput{}, fmt.Errorf("create dump directory: %w", err)
	}
	return DirOutput{directory: dir}, nil
}

func (o DirOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0o600)
	if err != nil {
		slog.Warn("failed to write http dump", "id", id, "err", err)
	}
}

// MemoryOutput keeps exchanges in memory, mostly for tests.
type MemoryOutput struct {
	mu       sync.Mutex
	messages map[string]string
}

func NewMemoryOutput() *MemoryOutput {
	return &MemoryOutput{messages: map[string]string{}}
}

func (o *MemoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages[id] = contents
}

func (o *MemoryOutput) Messages() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]string, len(o.messages))
	for k, v := range o.messages {
		out[k] = v
	}
	return out
}
