package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetState() {
	CloseAll()
	logsDir = ""
	opts = Options{}
	logLevel = LevelInfo
}

func TestInitialize_DebugModeWritesCategoryFiles(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	defer resetState()

	if err := Initialize(tempDir, Options{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("expected debug mode enabled")
	}

	Pipeline("label %q accepted", "Rice leaf blast")
	API("GET overview for %s", "PYRIOR")
	CloseAll()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, " ")
	for _, want := range []string{"_boot.log", "_pipeline.log", "_api.log"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected a %s file, got %v", want, names)
		}
	}
}

func TestInitialize_ProductionModeIsNoOp(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	defer resetState()

	if err := Initialize(filepath.Join(tempDir, "logs"), Options{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	Pipeline("should go nowhere")
	CloseAll()

	if _, err := os.Stat(filepath.Join(tempDir, "logs")); !os.IsNotExist(err) {
		t.Error("log directory created in production mode")
	}
}

func TestLevelFiltering(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	defer resetState()

	if err := Initialize(tempDir, Options{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	l := Get(CategoryStore)
	l.Info("filtered out")
	l.Warn("kept")
	CloseAll()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}

	var content []byte
	for _, e := range entries {
		if strings.Contains(e.Name(), "_store.log") {
			content, err = os.ReadFile(filepath.Join(tempDir, e.Name()))
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
		}
	}

	if strings.Contains(string(content), "filtered out") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(string(content), "kept") {
		t.Error("warn line missing")
	}
}

func TestJSONFormat(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	defer resetState()

	if err := Initialize(tempDir, Options{DebugMode: true, Level: "info", JSONFormat: true}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	LLM("generation call %d", 1)
	CloseAll()

	entries, _ := os.ReadDir(tempDir)
	var content string
	for _, e := range entries {
		if strings.Contains(e.Name(), "_llm.log") {
			data, err := os.ReadFile(filepath.Join(tempDir, e.Name()))
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			content = string(data)
		}
	}

	if !strings.Contains(content, `"cat":"llm"`) || !strings.Contains(content, `"msg":"generation call 1"`) {
		t.Errorf("expected structured JSON entry, got %q", content)
	}
}
