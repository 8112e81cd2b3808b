// Package inbox processes interview turns dropped into a spool directory.
//
// A turn is announced by a "<name>.turn.yaml" manifest next to its media.
// The media is moved into a private work directory, the turn is processed and
// "<name>.result.json" is written to the outbox.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/interview-proctor/internal/interview"
	"github.com/spigell/interview-proctor/internal/logger"
	"github.com/spigell/interview-proctor/internal/media"
	"github.com/spigell/interview-proctor/internal/pipeline"
)

const (
	ManifestSuffix = ".turn.yaml"
	ResultSuffix   = ".result.json"

	workDirName = ".work"
	// settleDelay lets writers finish before a manifest is read.
	settleDelay = 50 * time.Millisecond
)

type Manifest struct {
	InterviewID  string `yaml:"interview_id"`
	TurnID       string `yaml:"turn_id"`
	Question     string `yaml:"question"`
	QuestionType string `yaml:"question_type"`
	Audio        string `yaml:"audio"`
	Snapshot     string `yaml:"snapshot,omitempty"`
}

type Processor interface {
	ProcessTurn(ctx context.Context, turn pipeline.Turn) (*pipeline.TurnResult, error)
}

type Watcher struct {
	dir    string
	outDir string
	proc   Processor
	logger *zap.Logger
}

func New(dir, outDir string, proc Processor, log *zap.Logger) *Watcher {
	if outDir == "" {
		outDir = dir
	}
	return &Watcher{dir: dir, outDir: outDir, proc: proc, logger: logger.ForComponent(log, "inbox")}
}

// Run drains manifests already present and then processes new ones until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{w.dir, w.outDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			w.logger.Warn("failed to close watcher", zap.Error(err))
		}
	}()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching inbox", zap.String("dir", w.dir), zap.String("out_dir", w.outDir))

	pending, err := w.pending()
	if err != nil {
		return err
	}
	for _, path := range pending {
		w.handle(ctx, path)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("inbox watcher stopped")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ManifestSuffix) {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(settleDelay):
			}
			w.handle(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	if err := w.ProcessManifest(ctx, path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// already picked up by an earlier event
			return
		}
		w.logger.Error("failed to process manifest", zap.String("manifest", filepath.Base(path)), zap.Error(err))
	}
}

func (w *Watcher) pending() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ManifestSuffix) {
			out = append(out, filepath.Join(w.dir, entry.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// ProcessManifest handles one manifest. Turn failures are recorded in the
// result file; only spool problems are returned.
func (w *Watcher) ProcessManifest(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), ManifestSuffix)
	workDir := filepath.Join(w.outDir, workDirName, name)
	if err := os.MkdirAll(workDir, 0o700); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			w.logger.Warn("failed to remove work dir", zap.String("dir", workDir), zap.Error(err))
		}
	}()

	claimed := filepath.Join(workDir, filepath.Base(path))
	if err := os.Rename(path, claimed); err != nil {
		return fmt.Errorf("claim manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return w.writeReport(name, pipeline.NewReport(nil, fmt.Errorf("decode manifest: %w", err)))
	}

	turn, err := w.buildTurn(filepath.Dir(path), workDir, manifest)
	if err != nil {
		return w.writeReport(name, pipeline.NewReport(nil, err))
	}

	w.logger.Info("processing turn", append(logger.TurnFields(manifest.InterviewID, manifest.TurnID),
		zap.String("manifest", name))...)

	result, err := w.proc.ProcessTurn(ctx, turn)
	return w.writeReport(name, pipeline.NewReport(result, err))
}

// buildTurn moves the referenced media into workDir so the turn owns it exclusively.
// Every reference is checked before anything is moved, so a rejected manifest
// leaves the inbox untouched.
func (w *Watcher) buildTurn(baseDir, workDir string, m Manifest) (pipeline.Turn, error) {
	turn := pipeline.Turn{
		InterviewID: m.InterviewID,
		TurnID:      m.TurnID,
		Question: interview.Question{
			Text: m.Question,
			Type: interview.ParseQuestionType(m.QuestionType),
		},
	}

	if strings.TrimSpace(m.Audio) == "" {
		return turn, errors.New("manifest has no audio")
	}
	audioSrc, err := resolve(baseDir, m.Audio)
	if err != nil {
		return turn, err
	}
	var snapshotSrc string
	if strings.TrimSpace(m.Snapshot) != "" {
		if snapshotSrc, err = resolve(baseDir, m.Snapshot); err != nil {
			return turn, err
		}
		if snapshotSrc == audioSrc {
			return turn, errors.New("audio and snapshot reference the same file")
		}
	}

	audioPath, err := claim(audioSrc, workDir, "audio-")
	if err != nil {
		return turn, err
	}
	if snapshotSrc != "" {
		snapshotPath, err := claim(snapshotSrc, workDir, "snapshot-")
		if err != nil {
			if rerr := os.Rename(audioPath, audioSrc); rerr != nil {
				w.logger.Warn("failed to return audio to inbox", zap.String("file", audioSrc), zap.Error(rerr))
			}
			return turn, err
		}
		if turn.Snapshot, err = media.OpenSnapshot(snapshotPath, true); err != nil {
			return turn, err
		}
	}

	turn.Audio, err = media.OpenAudioClip(audioPath, true)
	if err != nil {
		return turn, err
	}
	return turn, nil
}

// resolve turns a manifest reference into a path inside the inbox and checks
// that it names a regular file.
func resolve(baseDir, ref string) (string, error) {
	ref = filepath.Clean(strings.TrimSpace(ref))
	if !filepath.IsLocal(ref) {
		return "", fmt.Errorf("media %q must be a relative path inside the inbox", ref)
	}
	if strings.HasSuffix(ref, ManifestSuffix) || strings.SplitN(filepath.ToSlash(ref), "/", 2)[0] == workDirName {
		return "", fmt.Errorf("media %q is not a media file", ref)
	}

	src := filepath.Join(baseDir, ref)
	info, err := os.Lstat(src)
	if err != nil {
		return "", fmt.Errorf("media %q: %w", ref, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("media %q is not a regular file", ref)
	}
	return src, nil
}

func claim(src, workDir, prefix string) (string, error) {
	dst := filepath.Join(workDir, prefix+filepath.Base(src))
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("claim %s: %w", filepath.Base(src), err)
	}
	return dst, nil
}

func (w *Watcher) writeReport(name string, report pipeline.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	target := filepath.Join(w.outDir, name+ResultSuffix)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}

	w.logger.Info("turn result written",
		zap.String("file", target),
		zap.Bool("failed", report.Error != ""),
	)
	return nil
}
