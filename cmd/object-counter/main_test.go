package main

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/object-counter/internal/config"
	"github.com/menta2k/object-counter/internal/server"
	"github.com/menta2k/object-counter/pkg/mock"
	"github.com/menta2k/object-counter/pkg/upload"
)

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig writes a default mock configuration and isolates the
// command from backend settings in the environment
func writeTestConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("BACKEND", "mock")
	t.Setenv("LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.Default().SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	return path
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 24))); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cranes.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return path
}

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	if cmd.Use != "object-counter" {
		t.Errorf("expected use 'object-counter', got %q", cmd.Use)
	}
	if cmd.Version == "" {
		t.Error("expected non-empty version")
	}

	flag := cmd.PersistentFlags().Lookup("verbose")
	if flag == nil {
		t.Fatal("expected verbose flag")
	}
	if flag.Shorthand != "v" {
		t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
	}
	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("expected config flag")
	}

	want := map[string]bool{"serve": false, "analyze": false, "init": false, "version": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected subcommand %q", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	if getVersion() == "" {
		t.Error("getVersion() returned empty string")
	}
	if getCommit() == "" {
		t.Error("getCommit() returned empty string")
	}

	var out bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	if !strings.Contains(out.String(), "object-counter version") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if !strings.Contains(out.String(), "commit:") {
		t.Errorf("expected commit line, got %q", out.String())
	}
}

func TestInitCmd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	stdout, _, err := runCmd(t, "init", "-o", path)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(stdout, path) {
		t.Errorf("expected output to mention %s, got %q", path, stdout)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Analysis.Backend != config.BackendMock {
		t.Errorf("expected mock backend, got %q", cfg.Analysis.Backend)
	}

	if _, _, err := runCmd(t, "init", "-o", path); err == nil {
		t.Error("expected error when the file exists")
	}
	if _, _, err := runCmd(t, "init", "-o", path, "-f"); err != nil {
		t.Errorf("expected -f to overwrite, got %v", err)
	}
}

func TestAnalyzeCmdMock(t *testing.T) {
	cfgPath := writeTestConfig(t)
	img := writeTestImage(t)

	stdout, _, err := runCmd(t, "analyze", "--config", cfgPath, img)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	for _, want := range []string{"File:    cranes.png", "32x24 png", "Backend: mock", "Count:", "👤 person"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, stdout)
		}
	}
}

func TestAnalyzeCmdJSON(t *testing.T) {
	cfgPath := writeTestConfig(t)
	img := writeTestImage(t)

	stdout, _, err := runCmd(t, "analyze", "-c", cfgPath, "--json", img)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(stdout, `"count":`) || !strings.Contains(stdout, `"objects":`) {
		t.Errorf("expected JSON result, got %q", stdout)
	}
}

func TestAnalyzeCmdServer(t *testing.T) {
	cfgPath := writeTestConfig(t)
	img := writeTestImage(t)

	srv := httptest.NewServer(server.New(config.Default(), mock.NewWithSeed(5)).Handler())
	defer srv.Close()

	stdout, _, err := runCmd(t, "analyze", "-c", cfgPath, "--server", srv.URL, img)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(stdout, "Backend: mock") {
		t.Errorf("expected server backend in output, got:\n%s", stdout)
	}
}

func TestAnalyzeCmdRejectsNonImage(t *testing.T) {
	cfgPath := writeTestConfig(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("just text"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := runCmd(t, "analyze", "-c", cfgPath, path)
	if !errors.Is(err, upload.ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
	if !strings.Contains(stderr, "Invalid file type: Please upload an image file.") {
		t.Errorf("expected notice on stderr, got %q", stderr)
	}
}

func TestAnalyzeCmdUnknownBackend(t *testing.T) {
	cfgPath := writeTestConfig(t)
	img := writeTestImage(t)

	if _, _, err := runCmd(t, "analyze", "-c", cfgPath, "--backend", "tensorflow", img); err == nil {
		t.Error("expected configuration error")
	}
}

func TestWriteDataURL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "annotated.jpg")
	if err := writeDataURL(path, "data:image/jpeg;base64,/9j/"); err != nil {
		t.Fatalf("writeDataURL failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{0xff, 0xd8, 0xff}) {
		t.Errorf("unexpected bytes %v", data)
	}

	if err := writeDataURL(path, "not a data url"); err == nil {
		t.Error("expected error for invalid data URL")
	}
}
