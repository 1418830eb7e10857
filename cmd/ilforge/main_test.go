package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ilforge/internal/ast"
	"ilforge/internal/project"
)

func writeProgram(t *testing.T, path, text string, exit int32) {
	t.Helper()
	prog := &ast.Program{Classes: []*ast.ClassDecl{{
		Name: "Program",
		Methods: []*ast.MethodDecl{{
			Name:   "Main",
			Static: true,
			Return: "int",
			Body: []ast.Stmt{
				&ast.ExprStmt{X: &ast.Call{Target: &ast.Ident{Name: "Console"}, Name: "WriteLine", Args: []ast.Expr{&ast.StringLit{Value: text}}}},
				&ast.Return{Value: &ast.IntLit{Value: exit}},
			},
		}},
	}}}
	var buf bytes.Buffer
	if err := ast.EncodeJSON(&buf, prog); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
}

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = execute(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestBuildFromManifest(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeProgram(t, filepath.Join(dir, "hello.json"), "hi", 0)
	manifest := "[module]\nname = \"Hello\"\n[build]\ninputs = [\"hello.json\"]\n"
	if err := os.WriteFile(filepath.Join(dir, project.ManifestName), []byte(manifest), 0o600); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := run(t, "build", "--ui", "off", "--timings")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "built out/Hello.il\n") {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stdout, "timings:") {
		t.Errorf("--timings printed nothing: %q", stdout)
	}
	listing, err := os.ReadFile(filepath.Join(dir, "out", "Hello.il"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(listing), ".assembly Hello {}") {
		t.Errorf("listing:\n%s", listing)
	}
}

func TestBuildFlagsOverrideManifest(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeProgram(t, filepath.Join(dir, "a.json"), "a", 0)
	code, stdout, stderr := run(t, "build", "--ui=off", "-o", "listings", "--runtime", "corelib", "a.json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "built listings/a.il\n" {
		t.Errorf("stdout = %q", stdout)
	}
	listing, err := os.ReadFile(filepath.Join(dir, "listings", "a.il"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(listing), ".assembly extern corelib {}") {
		t.Errorf("runtime not applied:\n%s", listing)
	}
}

func TestBuildWithoutInputs(t *testing.T) {
	chdir(t, t.TempDir())
	code, _, stderr := run(t, "build", "--ui=off")
	if code != 1 || !strings.Contains(stderr, "error:") || !strings.Contains(stderr, noManifestMessage) {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}

func TestRunExitCode(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeProgram(t, filepath.Join(dir, "hello.json"), "hello", 3)
	code, stdout, stderr := run(t, "run", "hello.json")
	if code != 3 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if stdout != "hello\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRunReportsCompileErrors(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	prog := &ast.Program{Classes: []*ast.ClassDecl{{
		Name:    "Program",
		Methods: []*ast.MethodDecl{{Name: "Main", Static: true, Return: "int"}},
	}}}
	var buf bytes.Buffer
	if err := ast.EncodeJSON(&buf, prog); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	code, _, stderr := run(t, "run", "bad.json")
	if code != 1 || !strings.Contains(stderr, "bad.json") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}

func TestDumpBackends(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeProgram(t, filepath.Join(dir, "p.json"), "x", 0)

	code, stdout, stderr := run(t, "dump", "p.json")
	if code != 0 || !strings.Contains(stdout, ".method public hidebysig static int32 Main() cil managed") {
		t.Errorf("textual dump: exit %d, %s%s", code, stdout, stderr)
	}
	code, stdout, stderr = run(t, "dump", "--backend", "dynamic", "p.json")
	if code != 0 || !strings.Contains(stdout, ".class Program") || !strings.Contains(stdout, "IL_0000:") {
		t.Errorf("dynamic dump: exit %d, %s%s", code, stdout, stderr)
	}
	if code, _, _ = run(t, "dump", "--backend", "llvm", "p.json"); code != 1 {
		t.Errorf("unknown backend accepted")
	}
}

func TestTraceToFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeProgram(t, filepath.Join(dir, "p.json"), "x", 0)
	code, _, stderr := run(t, "--trace", "trace.log", "run", "p.json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, "trace.log"))
	if err != nil {
		t.Fatal(err)
	}
	for _, phase := range []string{"declare", "generate", "finalize"} {
		if !strings.Contains(string(data), phase) {
			t.Errorf("trace lacks %q:\n%s", phase, data)
		}
	}
	if code, _, _ := run(t, "--trace-level", "loud", "version"); code != 1 {
		t.Error("bad trace level accepted")
	}
}

func TestVersionJSON(t *testing.T) {
	chdir(t, t.TempDir())
	code, stdout, _ := run(t, "version", "--format", "json", "--full")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Tool != "ilforge" || payload.Version == "" || payload.GitCommit != "unknown" {
		t.Errorf("payload = %+v", payload)
	}
	if code, _, _ = run(t, "version", "--format", "yaml"); code != 1 {
		t.Error("yaml format accepted")
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "ON": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("maybe"); err == nil {
		t.Error("readUIMode accepted maybe")
	}
	if !shouldUseTUI(uiModeOn) || shouldUseTUI(uiModeOff) {
		t.Error("explicit modes ignored")
	}
}

func TestFormatPathForOutput(t *testing.T) {
	root := filepath.Join("/", "work")
	if got := formatPathForOutput(root, filepath.Join(root, "out", "a.il")); got != "out/a.il" {
		t.Errorf("inside root = %q", got)
	}
	outside := filepath.Join("/", "elsewhere", "a.il")
	if got := formatPathForOutput(root, outside); got != outside {
		t.Errorf("outside root = %q", got)
	}
}

func TestProfileFlags(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	code, _, stderr := run(t, "--cpu-profile", "cpu.pprof", "--mem-profile", "heap.pprof", "version")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, name := range []string{"cpu.pprof", "heap.pprof"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Error(err)
		}
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
