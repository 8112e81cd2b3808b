package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-proctor/internal/ai"
	"github.com/spigell/interview-proctor/internal/interview"
	"github.com/spigell/interview-proctor/internal/pipeline"
	"github.com/spigell/interview-proctor/internal/transcription"
)

type recordingProcessor struct {
	mu    sync.Mutex
	turns []pipeline.Turn
	err   error
}

func (r *recordingProcessor) ProcessTurn(_ context.Context, turn pipeline.Turn) (*pipeline.TurnResult, error) {
	r.mu.Lock()
	r.turns = append(r.turns, turn)
	r.mu.Unlock()

	// the processor owns the media like the orchestrator does
	_ = turn.Audio.Release()
	_ = turn.Snapshot.Release()

	result := &pipeline.TurnResult{InterviewID: turn.InterviewID, TurnID: turn.TurnID, Question: turn.Question}
	if r.err != nil {
		return result, r.err
	}
	result.Transcript = &transcription.Transcript{Text: "hello world"}
	return result, nil
}

func (r *recordingProcessor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.turns)
}

func writeTurn(t *testing.T, dir, name string, withSnapshot bool) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".webm"), make([]byte, 2048), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	manifest := "interview_id: iv-1\nturn_id: " + name + "\nquestion: Why Go?\nquestion_type: technical\naudio: " + name + ".webm\n"
	if withSnapshot {
		if err := os.WriteFile(filepath.Join(dir, name+".jpg"), []byte("\xff\xd8\xff"), 0o600); err != nil {
			t.Fatalf("write snapshot: %v", err)
		}
		manifest += "snapshot: " + name + ".jpg\n"
	}
	if err := os.WriteFile(filepath.Join(dir, name+ManifestSuffix), []byte(manifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func readReport(t *testing.T, path string) pipeline.Report {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var report pipeline.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return report
}

func TestProcessManifest(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeTurn(t, in, "turn-1", true)

	proc := &recordingProcessor{}
	w := New(in, out, proc, zap.NewNop())

	if err := w.ProcessManifest(context.Background(), filepath.Join(in, "turn-1"+ManifestSuffix)); err != nil {
		t.Fatalf("ProcessManifest: %v", err)
	}

	if proc.count() != 1 {
		t.Fatalf("expected one turn, got %d", proc.count())
	}
	turn := proc.turns[0]
	if turn.InterviewID != "iv-1" || turn.TurnID != "turn-1" || turn.Question.Type != interview.Technical {
		t.Fatalf("unexpected turn %+v", turn)
	}
	if turn.Audio == nil || !turn.Audio.Ephemeral || turn.Snapshot == nil {
		t.Fatalf("expected owned media, got %+v", turn)
	}

	report := readReport(t, filepath.Join(out, "turn-1"+ResultSuffix))
	if report.Error != "" || report.Result == nil || report.Result.Transcript.Text != "hello world" {
		t.Fatalf("unexpected report %+v", report)
	}

	entries, _ := os.ReadDir(in)
	if len(entries) != 0 {
		t.Fatalf("inbox should be empty, found %d entries", len(entries))
	}
	if _, err := os.Stat(filepath.Join(out, workDirName, "turn-1")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("work dir should be removed, stat err: %v", err)
	}
}

func TestProcessManifestRecordsFailures(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeTurn(t, in, "bad", false)

	proc := &recordingProcessor{err: ai.ProviderError("whisper", 503, "", errors.New("unavailable"))}
	w := New(in, out, proc, zap.NewNop())

	if err := w.ProcessManifest(context.Background(), filepath.Join(in, "bad"+ManifestSuffix)); err != nil {
		t.Fatalf("ProcessManifest: %v", err)
	}

	report := readReport(t, filepath.Join(out, "bad"+ResultSuffix))
	if report.ErrorKind != ai.KindProvider || !report.Retryable || report.Error == "" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestProcessManifestMissingAudio(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	manifest := "interview_id: iv-1\nquestion: Why?\naudio: missing.webm\n"
	if err := os.WriteFile(filepath.Join(in, "lost"+ManifestSuffix), []byte(manifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	proc := &recordingProcessor{}
	if err := New(in, out, proc, zap.NewNop()).ProcessManifest(context.Background(), filepath.Join(in, "lost"+ManifestSuffix)); err != nil {
		t.Fatalf("ProcessManifest: %v", err)
	}
	if proc.count() != 0 {
		t.Fatal("processor must not run without audio")
	}
	if report := readReport(t, filepath.Join(out, "lost"+ResultSuffix)); report.Error == "" {
		t.Fatal("expected error in report")
	}
}

func TestRunPicksUpExistingAndNewManifests(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeTurn(t, in, "early", false)

	proc := &recordingProcessor{}
	w := New(in, out, proc, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, filepath.Join(out, "early"+ResultSuffix))

	writeTurn(t, in, "late", false)
	waitFor(t, filepath.Join(out, "late"+ResultSuffix))

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if proc.count() != 2 {
		t.Fatalf("expected two turns, got %d", proc.count())
	}
}

func waitFor(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
}

func TestProcessManifestRejectsMediaOutsideInbox(t *testing.T) {
	root := t.TempDir()
	in, out := filepath.Join(root, "inbox"), filepath.Join(root, "outbox")
	if err := os.MkdirAll(in, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	outside := filepath.Join(root, "precious.webm")
	if err := os.WriteFile(outside, make([]byte, 2048), 0o600); err != nil {
		t.Fatalf("write outside file: %v", err)
	}

	cases := map[string]string{
		"parent":   "audio: ../precious.webm\n",
		"absolute": "audio: " + outside + "\n",
		"snapshot": "audio: local.webm\nsnapshot: ../precious.webm\n",
	}

	for name, refs := range cases {
		t.Run(name, func(t *testing.T) {
			if err := os.WriteFile(filepath.Join(in, "local.webm"), make([]byte, 2048), 0o600); err != nil {
				t.Fatalf("write audio: %v", err)
			}
			manifest := filepath.Join(in, name+ManifestSuffix)
			if err := os.WriteFile(manifest, []byte("interview_id: iv-1\nquestion: Why?\n"+refs), 0o600); err != nil {
				t.Fatalf("write manifest: %v", err)
			}

			proc := &recordingProcessor{}
			if err := New(in, out, proc, zap.NewNop()).ProcessManifest(context.Background(), manifest); err != nil {
				t.Fatalf("ProcessManifest: %v", err)
			}

			if proc.count() != 0 {
				t.Fatal("processor must not run for rejected media")
			}
			if report := readReport(t, filepath.Join(out, name+ResultSuffix)); report.Error == "" {
				t.Fatal("expected error in report")
			}
			if _, err := os.Stat(outside); err != nil {
				t.Fatalf("file outside the inbox must survive: %v", err)
			}
			if _, err := os.Stat(filepath.Join(in, "local.webm")); err != nil {
				t.Fatalf("inbox audio must stay in place: %v", err)
			}
		})
	}
}

func TestProcessManifestKeepsAudioWhenSnapshotIsMissing(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "answer.webm"), make([]byte, 2048), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	manifest := filepath.Join(in, "partial"+ManifestSuffix)
	content := "interview_id: iv-1\nquestion: Why?\naudio: answer.webm\nsnapshot: missing.jpg\n"
	if err := os.WriteFile(manifest, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	proc := &recordingProcessor{}
	if err := New(in, out, proc, zap.NewNop()).ProcessManifest(context.Background(), manifest); err != nil {
		t.Fatalf("ProcessManifest: %v", err)
	}

	if proc.count() != 0 {
		t.Fatal("processor must not run without the snapshot")
	}
	if _, err := os.Stat(filepath.Join(in, "answer.webm")); err != nil {
		t.Fatalf("audio must stay in the inbox: %v", err)
	}
}

func TestProcessManifestAcceptsSubdirectories(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	for _, sub := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(in, sub), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(in, "a", "clip.bin"), make([]byte, 2048), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if err := os.WriteFile(filepath.Join(in, "b", "clip.bin"), []byte("\xff\xd8\xff"), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	manifest := filepath.Join(in, "nested"+ManifestSuffix)
	content := "interview_id: iv-1\nquestion: Why?\naudio: a/clip.bin\nsnapshot: b/clip.bin\n"
	if err := os.WriteFile(manifest, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	proc := &recordingProcessor{}
	if err := New(in, out, proc, zap.NewNop()).ProcessManifest(context.Background(), manifest); err != nil {
		t.Fatalf("ProcessManifest: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("expected one turn, got %d", proc.count())
	}
	turn := proc.turns[0]
	if turn.Audio == nil || turn.Snapshot == nil || turn.Audio.Path == turn.Snapshot.Path {
		t.Fatalf("expected distinct claimed media, got %+v / %+v", turn.Audio, turn.Snapshot)
	}
	if turn.Audio.SizeBytes != 2048 {
		t.Fatalf("audio was overwritten, size %d", turn.Audio.SizeBytes)
	}
}
