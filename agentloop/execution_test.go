package agentloop

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFileLineNumbers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(path, []byte("first\nsecond\nthird"), 0644); err != nil {
		t.Fatal(err)
	}

	env := NewLocalEnvironment(dir)
	out, err := env.ReadFile("sample.txt", 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out, "1 | first") || !strings.Contains(out, "3 | third") {
		t.Errorf("output = %q, want line-numbered content", out)
	}
}

func TestReadFileOffsetAndLimit(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "f.txt"), []byte("a\nb\nc\nd\ne"), 0644); err != nil {
		t.Fatal(err)
	}

	env := NewLocalEnvironment(dir)
	out, err := env.ReadFile("f.txt", 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(out, "1 | a") || strings.Contains(out, "4 | d") {
		t.Errorf("output = %q, want only lines 2 and 3", out)
	}
	if !strings.Contains(out, "2 | b") || !strings.Contains(out, "3 | c") {
		t.Errorf("output = %q, want lines 2 and 3", out)
	}
}

func TestReadFileRawHasNoLineNumbers(t *testing.T) {
	dir := t.TempDir()
	content := "alpha\nbeta"
	if err := os.WriteFile(filepath.Join(dir, "raw.txt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	env := NewLocalEnvironment(dir)
	out, err := env.ReadFileRaw("raw.txt")
	if err != nil {
		t.Fatal(err)
	}
	if out != content {
		t.Errorf("ReadFileRaw = %q, want %q", out, content)
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	env := NewLocalEnvironment(dir)

	if err := env.WriteFile("nested/deep/out.txt", "hello"); err != nil {
		t.Fatal(err)
	}
	if !env.FileExists("nested/deep/out.txt") {
		t.Error("written file does not exist")
	}

	out, err := env.ReadFileRaw("nested/deep/out.txt")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello" {
		t.Errorf("content = %q, want %q", out, "hello")
	}
}

func TestListDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	env := NewLocalEnvironment(dir)
	entries, err := env.ListDirectory(".")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	byName := map[string]DirEntry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	if !byName["sub"].IsDir {
		t.Error("sub not reported as a directory")
	}
	if byName["a.txt"].IsDir {
		t.Error("a.txt reported as a directory")
	}
}

func TestExecCommand(t *testing.T) {
	env := NewLocalEnvironment(t.TempDir())

	result, err := env.ExecCommand(context.Background(), "echo hello", 5000, "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("stdout = %q, want hello", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
}

func TestExecCommandNonZeroExit(t *testing.T) {
	env := NewLocalEnvironment(t.TempDir())

	result, err := env.ExecCommand(context.Background(), "exit 3", 5000, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestExecCommandTimeout(t *testing.T) {
	env := NewLocalEnvironment(t.TempDir())

	result, err := env.ExecCommand(context.Background(), "sleep 5", 100, "")
	if err != nil {
		t.Fatal(err)
	}
	if !result.TimedOut {
		t.Error("TimedOut = false, want true")
	}
}

func TestGlobRelativePaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.go", "two.go", "three.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	env := NewLocalEnvironment(dir)
	matches, err := env.Glob("*.go", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	for _, m := range matches {
		if filepath.IsAbs(m) {
			t.Errorf("match %q is absolute, want relative", m)
		}
	}
}

func TestSensitiveEnvFiltering(t *testing.T) {
	if isSensitiveEnvVar("OPENAI_API_KEY") == false {
		t.Error("OPENAI_API_KEY not flagged as sensitive")
	}
	if isSensitiveEnvVar("DB_PASSWORD") == false {
		t.Error("DB_PASSWORD not flagged as sensitive")
	}
	if isSensitiveEnvVar("PATH") {
		t.Error("PATH flagged as sensitive")
	}
}

func TestEditFileTool(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "code.go"), []byte("x := 1\ny := 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewToolRegistry()
	RegisterCoreTools(reg, 5000, 10000)
	env := NewLocalEnvironment(dir)

	tool := reg.Get("edit_file")
	out, err := tool.Executor(json.RawMessage(`{"file_path": "code.go", "old_string": "y := 2", "new_string": "y := 3"}`), env)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1 occurrence") {
		t.Errorf("output = %q", out)
	}

	content, err := env.ReadFileRaw("code.go")
	if err != nil {
		t.Fatal(err)
	}
	if content != "x := 1\ny := 3\n" {
		t.Errorf("content = %q, want the edit applied", content)
	}
}

func TestEditFileAmbiguousWithoutReplaceAll(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dup.txt"), []byte("same\nsame\n"), 0644); err != nil {
		t.Fatal(err)
	}

	reg := NewToolRegistry()
	RegisterCoreTools(reg, 5000, 10000)
	env := NewLocalEnvironment(dir)

	tool := reg.Get("edit_file")
	if _, err := tool.Executor(json.RawMessage(`{"file_path": "dup.txt", "old_string": "same", "new_string": "other"}`), env); err == nil {
		t.Error("edit_file accepted an ambiguous old_string")
	}

	out, err := tool.Executor(json.RawMessage(`{"file_path": "dup.txt", "old_string": "same", "new_string": "other", "replace_all": true}`), env)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2 occurrence") {
		t.Errorf("output = %q, want both replaced", out)
	}
}
