package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	def := Default()
	if cfg.Context.MaxTokens != def.Context.MaxTokens {
		t.Errorf("maxTokens = %d, want default %d", cfg.Context.MaxTokens, def.Context.MaxTokens)
	}
	if cfg.Context.CharsPerToken != 4 {
		t.Errorf("charsPerToken = %d, want 4", cfg.Context.CharsPerToken)
	}
}

func TestLoad_PartialFileLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "context:\n  chars_per_token: 3\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Context.CharsPerToken != 3 {
		t.Errorf("charsPerToken = %d, want 3", cfg.Context.CharsPerToken)
	}
	// Unspecified knobs keep their defaults.
	if cfg.Context.MaxTokens != 8000 {
		t.Errorf("maxTokens = %d, want 8000", cfg.Context.MaxTokens)
	}
	if cfg.Training.RecentLessons != 5 {
		t.Errorf("recentLessons = %d, want 5", cfg.Training.RecentLessons)
	}
	if cfg.DataDir == "" {
		t.Error("dataDir should default, not stay empty")
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `data_dir: /tmp/mentor-test
context:
  max_tokens: 4000
  chars_per_token: 3
  max_depth: 2
training:
  recent_lessons: 10
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/tmp/mentor-test" {
		t.Errorf("dataDir = %q", cfg.DataDir)
	}
	if cfg.Context.MaxTokens != 4000 || cfg.Context.MaxDepth != 2 {
		t.Errorf("context = %+v", cfg.Context)
	}
	if cfg.Training.RecentLessons != 10 {
		t.Errorf("recentLessons = %d", cfg.Training.RecentLessons)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("context: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed yaml should error")
	}
}
