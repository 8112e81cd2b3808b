// Package media models the per-turn media artifacts. Artifacts are owned by
// exactly one turn and released on every exit path.
package media

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// AudioClip is a spoken answer. Either Data or Path holds the payload.
type AudioClip struct {
	Path      string
	Data      []byte
	MIMEHint  string
	SizeBytes int64
	// Ephemeral clips own Path and delete it on Release.
	Ephemeral bool
}

// Snapshot is an optional webcam frame captured during a turn.
type Snapshot struct {
	Path      string
	Data      []byte
	MIMEType  string
	Ephemeral bool
}

func NewAudioClip(data []byte, mimeHint string) *AudioClip {
	if mimeHint == "" {
		mimeHint = DetectMIME("", data)
	}
	return &AudioClip{Data: data, MIMEHint: normalizeMIME(mimeHint), SizeBytes: int64(len(data))}
}

// OpenAudioClip references an audio file without reading it.
func OpenAudioClip(path string, ephemeral bool) (*AudioClip, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat audio clip: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("audio clip %q is a directory", path)
	}
	return &AudioClip{
		Path:      path,
		MIMEHint:  DetectMIME(path, nil),
		SizeBytes: info.Size(),
		Ephemeral: ephemeral,
	}, nil
}

// Bytes returns the clip payload, reading Path when needed.
func (c *AudioClip) Bytes() ([]byte, error) {
	if c == nil {
		return nil, errors.New("audio clip is nil")
	}
	if c.Data != nil || c.Path == "" {
		return c.Data, nil
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("read audio clip: %w", err)
	}
	if c.MIMEHint == "" || c.MIMEHint == "application/octet-stream" {
		c.MIMEHint = DetectMIME(c.Path, data)
	}
	return data, nil
}

func (c *AudioClip) Release() error {
	if c == nil {
		return nil
	}
	c.Data = nil
	return removeIfOwned(c.Path, c.Ephemeral)
}

func OpenSnapshot(path string, ephemeral bool) (*Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	return &Snapshot{Path: path, MIMEType: DetectMIME(path, nil), Ephemeral: ephemeral}, nil
}

func (s *Snapshot) Bytes() ([]byte, error) {
	if s == nil {
		return nil, errors.New("snapshot is nil")
	}
	if s.Data != nil || s.Path == "" {
		return s.Data, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

func (s *Snapshot) Release() error {
	if s == nil {
		return nil
	}
	s.Data = nil
	return removeIfOwned(s.Path, s.Ephemeral)
}

func removeIfOwned(path string, owned bool) error {
	if !owned || path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release %s: %w", filepath.Base(path), err)
	}
	return nil
}

type releaser interface {
	Release() error
}

// Scope collects artifacts acquired during a turn and releases all of them at once.
type Scope struct {
	mu    sync.Mutex
	items []releaser
}

// Track registers an artifact; nil artifacts are ignored.
func (s *Scope) Track(items ...releaser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if item == nil {
			continue
		}
		switch v := item.(type) {
		case *AudioClip:
			if v == nil {
				continue
			}
		case *Snapshot:
			if v == nil {
				continue
			}
		}
		s.items = append(s.items, item)
	}
}

// Release releases every tracked artifact, continuing past failures.
func (s *Scope) Release() error {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()

	var errs []error
	for _, item := range items {
		if err := item.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var extensionTypes = map[string]string{
	".webm": "audio/webm",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".mpga": "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// DetectMIME guesses a content type from the file extension, falling back to
// content sniffing when data is available.
func DetectMIME(name string, data []byte) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if t, ok := extensionTypes[ext]; ok {
			return t
		}
		if t := mime.TypeByExtension(ext); t != "" {
			return normalizeMIME(t)
		}
	}
	if len(data) > 0 {
		return normalizeMIME(http.DetectContentType(data))
	}
	return "application/octet-stream"
}

// normalizeMIME drops parameters such as codecs and lower-cases the type.
func normalizeMIME(t string) string {
	if idx := strings.IndexByte(t, ';'); idx != -1 {
		t = t[:idx]
	}
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "video/webm" {
		// browsers label audio-only MediaRecorder output as video/webm
		return "audio/webm"
	}
	return t
}

// ExtensionFor returns a file extension for the MIME type, defaulting to ".bin".
func ExtensionFor(mimeType string) string {
	mimeType = normalizeMIME(mimeType)
	for ext, t := range extensionTypes {
		if t == mimeType && ext != ".mpga" && ext != ".oga" && ext != ".jpeg" && ext != ".mp4" {
			return ext
		}
	}
	return ".bin"
}
