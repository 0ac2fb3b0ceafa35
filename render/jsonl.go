package render

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/c360/ticketfront/errors"
	"github.com/c360/ticketfront/protocol"
)

// JSONLines appends one Record per reply to a file.
type JSONLines struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// OpenJSONLines opens path for appending, creating it and its directory if needed.
func OpenJSONLines(path string) (*JSONLines, error) {
	if path == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "JSONLines", "OpenJSONLines", "jsonl path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.WrapFatal(err, "JSONLines", "OpenJSONLines", "create directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.WrapFatal(err, "JSONLines", "OpenJSONLines", "open "+path)
	}
	return &JSONLines{file: f, enc: json.NewEncoder(f), now: time.Now}, nil
}

// Render appends the reply record.
func (j *JSONLines) Render(target string, reply protocol.Reply) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return errors.WrapInvalid(errors.ErrShuttingDown, "JSONLines", "Render", "write closed file")
	}
	if err := j.enc.Encode(newRecord(target, reply, j.now())); err != nil {
		return errors.Wrap(err, "JSONLines", "Render", "append record")
	}
	return nil
}

// Close closes the file. Later Render calls fail.
func (j *JSONLines) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
