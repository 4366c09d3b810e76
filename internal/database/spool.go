package database

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SpoolArtifact is the complete outcome of one campaign, kept on disk so
// that results survive an unreachable database.
type SpoolArtifact struct {
	Version int `json:"version"`

	CreatedAt time.Time `json:"created_at"`

	ConfigContent string `json:"config_content"`

	Run       *RunMetadata    `json:"run"`
	Systems   []*SystemResult `json:"systems"`
	Summaries []*Summary      `json:"summaries"`
}

func DefaultSpoolDir() string {
	if v := strings.TrimSpace(os.Getenv("PREM_RTA_SPOOL_DIR")); v != "" {
		return v
	}
	return "spool"
}

// WriteSpoolArtifact writes a gzip-compressed JSON artifact to disk atomically.
// It returns the final file path.
func WriteSpoolArtifact(dir string, artifact *SpoolArtifact) (string, error) {
	if artifact == nil {
		return "", fmt.Errorf("spool artifact is nil")
	}
	if dir == "" {
		dir = DefaultSpoolDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	runID, checksum := "norun", "nocsum"
	if artifact.Run != nil {
		if artifact.Run.RunID != "" {
			runID = artifact.Run.RunID
		}
		if artifact.Run.Checksum != "" {
			checksum = artifact.Run.Checksum
		}
	}
	name := fmt.Sprintf(
		"campaign_%s_%s_%s.json.gz",
		runID,
		artifact.CreatedAt.UTC().Format("20060102T150405Z"),
		checksum,
	)
	finalPath := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, name+".tmp.*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	gz := gzip.NewWriter(tmp)
	enc := json.NewEncoder(gz)
	enc.SetIndent("", "  ")
	if err := enc.Encode(artifact); err != nil {
		_ = gz.Close()
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", err
	}
	ok = true
	return finalPath, nil
}

// ReadSpoolArtifact loads an artifact written by WriteSpoolArtifact.
func ReadSpoolArtifact(path string) (*SpoolArtifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var artifact SpoolArtifact
	if err := json.NewDecoder(gz).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("failed to decode spool artifact %s: %w", path, err)
	}
	return &artifact, nil
}

// SpoolSink collects everything in memory and writes a single artifact on
// Close.
type SpoolSink struct {
	dir           string
	configContent string

	mu       sync.Mutex
	artifact SpoolArtifact
	written  string
}

func NewSpoolSink(dir, configContent string) *SpoolSink {
	return &SpoolSink{
		dir:           dir,
		configContent: configContent,
		artifact:      SpoolArtifact{Version: 1},
	}
}

func (s *SpoolSink) WriteRun(_ context.Context, run *RunMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact.Run = run
	return nil
}

func (s *SpoolSink) WriteSystem(_ context.Context, result *SystemResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact.Systems = append(s.artifact.Systems, result)
	return nil
}

func (s *SpoolSink) WriteSummary(_ context.Context, summary *Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact.Summaries = append(s.artifact.Summaries, summary)
	return nil
}

// Path returns the artifact location once Close has written it.
func (s *SpoolSink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

func (s *SpoolSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written != "" {
		return nil
	}
	s.artifact.CreatedAt = time.Now()
	s.artifact.ConfigContent = s.configContent
	path, err := WriteSpoolArtifact(s.dir, &s.artifact)
	if err != nil {
		return err
	}
	s.written = path
	return nil
}
