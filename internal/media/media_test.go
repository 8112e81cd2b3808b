package media

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestScopeReleasesEphemeralFiles(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "answer.webm")
	imagePath := filepath.Join(dir, "frame.jpg")
	keptPath := filepath.Join(dir, "kept.wav")
	for _, p := range []string{audioPath, imagePath, keptPath} {
		if err := os.WriteFile(p, []byte("payload"), 0o600); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	clip, err := OpenAudioClip(audioPath, true)
	if err != nil {
		t.Fatalf("open clip: %v", err)
	}
	if clip.MIMEHint != "audio/webm" || clip.SizeBytes != 7 {
		t.Fatalf("unexpected clip metadata: %+v", clip)
	}
	snap, err := OpenSnapshot(imagePath, true)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	kept, err := OpenAudioClip(keptPath, false)
	if err != nil {
		t.Fatalf("open kept clip: %v", err)
	}

	var scope Scope
	var nilSnap *Snapshot
	scope.Track(clip, snap, kept, nilSnap)
	if err := scope.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	for _, p := range []string{audioPath, imagePath} {
		if _, err := os.Stat(p); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("expected %s to be removed, stat err %v", p, err)
		}
	}
	if _, err := os.Stat(keptPath); err != nil {
		t.Fatalf("non-ephemeral clip must be kept: %v", err)
	}

	// second release is a no-op
	if err := scope.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestDetectMIME(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{name: "extension", file: "a.MP3", want: "audio/mpeg"},
		{name: "webm", file: "a.webm", want: "audio/webm"},
		{name: "sniffed wav", data: SilentWAV(10*time.Millisecond, 8000), want: "audio/wave"},
		{name: "unknown", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectMIME(tt.file, tt.data); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHeaderDuration(t *testing.T) {
	t.Parallel()

	lookup := HeaderDuration{Default: 30 * time.Second}

	d, exact := lookup.Duration(nil, SilentWAV(1500*time.Millisecond, 16000))
	if !exact || d != 1500*time.Millisecond {
		t.Fatalf("expected exact 1.5s, got %s (exact=%v)", d, exact)
	}

	d, exact = lookup.Duration(nil, []byte("\x1aE\xdf\xa3 webm bytes"))
	if exact || d != 30*time.Second {
		t.Fatalf("expected default approximation, got %s (exact=%v)", d, exact)
	}
}
