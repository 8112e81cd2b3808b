package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/interview-proctor/internal/config"
	"github.com/spigell/interview-proctor/internal/interview"
	"github.com/spigell/interview-proctor/internal/proctoring"
)

func TestReadRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interview.yaml")
	content := `id: iv-42
type: technical
duration: 12m30s
turns:
  - question:
      text: How do you shard a database?
      type: Tech
    response: By tenant id.
    scores:
      clarity: 70
      relevance: 80
      depth: 50
      structure: 60
  - question:
      text: Tell me about a conflict.
    response: We talked it through.
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	record, err := readRecord(path)
	if err != nil {
		t.Fatalf("readRecord: %v", err)
	}
	if record.ID != "iv-42" || record.Duration != 12*time.Minute+30*time.Second || len(record.Turns) != 2 {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.Turns[0].Question.Type != interview.Technical || record.Turns[1].Question.Type != interview.Behavioral {
		t.Fatalf("unexpected question types %q, %q", record.Turns[0].Question.Type, record.Turns[1].Question.Type)
	}
	if record.Turns[0].Scores == nil || record.Turns[0].Scores.Relevance != 80 || record.Turns[1].Scores != nil {
		t.Fatalf("unexpected scores %+v / %+v", record.Turns[0].Scores, record.Turns[1].Scores)
	}
}

func TestReadDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	content := "- id: cam0\n  label: Integrated Webcam\n- label: \"  \"\n- label: OBS Virtual Camera\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	devices, err := readDevices(path)
	if err != nil {
		t.Fatalf("readDevices: %v", err)
	}
	if len(devices) != 2 || devices[0].ID != "cam0" || devices[1].Label != "OBS Virtual Camera" {
		t.Fatalf("unexpected devices %+v", devices)
	}
}

func TestPrintResult(t *testing.T) {
	t.Cleanup(func() { viper.Set("output", "") })
	value := map[string]int{"score": 7}

	viper.Set("output", "yaml")
	var buf bytes.Buffer
	if err := printResult(&buf, value); err != nil {
		t.Fatalf("printResult yaml: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "score: 7" {
		t.Fatalf("unexpected yaml %q", buf.String())
	}

	viper.Set("output", "json")
	buf.Reset()
	if err := printResult(&buf, value); err != nil {
		t.Fatalf("printResult json: %v", err)
	}
	if !strings.Contains(buf.String(), `"score": 7`) {
		t.Fatalf("unexpected json %q", buf.String())
	}

	viper.Set("output", "xml")
	if err := printResult(&buf, value); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestGetConfigReadsEnvWithoutConfigFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(t.TempDir())

	t.Setenv("INTERVIEW_PROCTOR_TRANSCRIPTION_PROVIDER", "gemini")
	t.Setenv("INTERVIEW_PROCTOR_GENERATION_MAX_TOKENS", "2048")
	t.Setenv("INTERVIEW_PROCTOR_TIMEOUTS_PROVIDER", "15s")
	t.Setenv("INTERVIEW_PROCTOR_PROVIDERS_WHISPER_BASE_URL", "http://localhost:9000/")

	initConfig()
	cfg, err := getConfig()
	if err != nil {
		t.Fatalf("getConfig: %v", err)
	}

	if cfg.Transcription.Provider != config.ProviderGemini {
		t.Fatalf("expected provider from env, got %q", cfg.Transcription.Provider)
	}
	if cfg.Generation.MaxTokens != 2048 {
		t.Fatalf("expected max tokens from env, got %d", cfg.Generation.MaxTokens)
	}
	if cfg.Timeouts.Provider != 15*time.Second {
		t.Fatalf("expected timeout from env, got %s", cfg.Timeouts.Provider)
	}
	if cfg.Providers.Whisper.BaseURL != "http://localhost:9000" {
		t.Fatalf("expected whisper base url from env, got %q", cfg.Providers.Whisper.BaseURL)
	}
	if cfg.Transcription.Language != "en" || cfg.Providers.Whisper.Model != "whisper-1" {
		t.Fatalf("unset options must keep defaults, got %+v / %+v", cfg.Transcription, cfg.Providers.Whisper)
	}
}

func TestCameraResultKeepsRecommendation(t *testing.T) {
	t.Cleanup(func() { viper.Set("output", "") })

	devices := []proctoring.Device{{Label: "OBS Virtual Camera"}, {Label: "Integrated Webcam"}}
	result := cameraResult{
		CameraAssessment: proctoring.ValidateCamera(devices),
		SelectedDevice:   &devices[0],
	}

	for _, format := range []string{"json", "yaml"} {
		viper.Set("output", format)
		var buf bytes.Buffer
		if err := printResult(&buf, result); err != nil {
			t.Fatalf("printResult %s: %v", format, err)
		}
		out := buf.String()
		if !strings.Contains(out, "recommendedDevice") || !strings.Contains(out, "selectedDevice") {
			t.Fatalf("%s output must carry both devices:\n%s", format, out)
		}
		recommended := strings.Index(out, "recommendedDevice")
		if !strings.Contains(out[recommended:], "Integrated Webcam") {
			t.Fatalf("%s output lost the recommendation:\n%s", format, out)
		}
		if !strings.Contains(out, "isValid") {
			t.Fatalf("%s output must keep the assessment fields:\n%s", format, out)
		}
	}
}

func TestRedactedDoesNotLeakKeys(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Gemini.APIKey = "secret-gemini"
	cfg.Providers.Whisper.APIKey = "secret-whisper"

	out := redacted(cfg)
	if out.Providers.Gemini.APIKey != "***" || out.Providers.Whisper.APIKey != "***" {
		t.Fatalf("keys were not masked: %+v", out.Providers)
	}
	if cfg.Providers.Gemini.APIKey != "secret-gemini" {
		t.Fatal("original config must not be modified")
	}
}
