// internal/engrave/sink.go
package engrave

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ArtifactSink persists a rendered array SVG somewhere durable. The
// filename scheme itself is out of scope (spec §4.L); this is the
// minimal seam a real deployment plugs a relay or object-store writer
// into.
type ArtifactSink interface {
	Write(batchID uuid.UUID, qsaSequence uint32, svg string) (string, error)
}

// LocalFileSink writes each array's SVG to a file under BaseDir.
type LocalFileSink struct {
	BaseDir string
}

// NewLocalFileSink creates a sink rooted at baseDir, creating it if
// it does not already exist.
func NewLocalFileSink(baseDir string) (*LocalFileSink, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact base dir: %w", err)
	}
	return &LocalFileSink{BaseDir: baseDir}, nil
}

// Write implements ArtifactSink.
func (s *LocalFileSink) Write(batchID uuid.UUID, qsaSequence uint32, svg string) (string, error) {
	path := filepath.Join(s.BaseDir, fmt.Sprintf("%s-%d.svg", batchID.String(), qsaSequence))
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", path, err)
	}
	return path, nil
}

// NoopSink discards every artifact. Used in tests and in deployments
// where the SVG is only needed in the HTTP response body.
type NoopSink struct{}

// Write implements ArtifactSink, always returning no path.
func (NoopSink) Write(batchID uuid.UUID, qsaSequence uint32, svg string) (string, error) {
	return "", nil
}
