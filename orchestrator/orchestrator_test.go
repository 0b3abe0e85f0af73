package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbuild-go/kobjcache/cacheentry"
	"github.com/kbuild-go/kobjcache/process"
)

// shellQuote wraps s in single quotes for use inside a `sh -c` script. The
// fixed strings used by these tests never contain a single quote.
func shellQuote(s string) string {
	return "'" + s + "'"
}

// preprocessorArgv returns an argv that writes content verbatim to path,
// standing in for a real preprocessor that writes its own output file
// (RedirectStdout is false in these tests).
func preprocessorArgv(path, content string) []string {
	return []string{"sh", "-c", fmt.Sprintf("printf %s > %s", shellQuote(content), shellQuote(path))}
}

// compilerArgv returns an argv that appends one line to counterPath (so
// tests can count invocations) and writes a placeholder object file.
func compilerArgv(objectPath, counterPath string) []string {
	return []string{"sh", "-c", fmt.Sprintf("echo x >> %s && printf object > %s", shellQuote(counterPath), shellQuote(objectPath))}
}

func compileCount(t *testing.T, counterPath string) int {
	t.Helper()
	data, err := os.ReadFile(counterPath)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("unable to read compile counter: %v", err)
	}
	return len(data) / 2 // each invocation appends "x\n"
}

func TestRunColdBuild(t *testing.T) {
	dir := t.TempDir()
	outName := filepath.Join(dir, "out.i")
	objName := filepath.Join(dir, "out.o")
	counter := filepath.Join(dir, "counter")

	entry := cacheentry.New(dir, "entry")
	cfg := Config{
		PreprocessorArgv:       preprocessorArgv(outName, "A"),
		PreprocessorOutputName: outName,
		CompilerArgv:           compilerArgv(objName, counter),
		ObjectName:             objName,
	}

	if err := Run(entry, cfg, process.NewRunner(), nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if compileCount(t, counter) != 1 {
		t.Errorf("expected exactly one compile, got %d", compileCount(t, counter))
	}
	if len(entry.Accepted) != 1 {
		t.Errorf("expected one accepted fingerprint, got %d", len(entry.Accepted))
	}

	// Reload from disk and confirm persistence.
	reloaded, err := cacheentry.Load(dir, "entry")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Empty {
		t.Error("persisted entry should not be Empty on reload")
	}
	if reloaded.ObjectPath != "out.o" {
		t.Errorf("ObjectPath = %q, want %q", reloaded.ObjectPath, "out.o")
	}
}

func TestRunWarmHit(t *testing.T) {
	dir := t.TempDir()
	outName := filepath.Join(dir, "out.i")
	objName := filepath.Join(dir, "out.o")
	counter := filepath.Join(dir, "counter")

	cfg := Config{
		PreprocessorArgv:       preprocessorArgv(outName, "A"),
		PreprocessorOutputName: outName,
		CompilerArgv:           compilerArgv(objName, counter),
		ObjectName:             objName,
	}

	entry := cacheentry.New(dir, "entry")
	if err := Run(entry, cfg, process.NewRunner(), nil); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	reloaded, err := cacheentry.Load(dir, "entry")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if err := Run(reloaded, cfg, process.NewRunner(), nil); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if got := compileCount(t, counter); got != 1 {
		t.Errorf("expected compiler invoked exactly once across both runs, got %d", got)
	}
}

func TestRunStructuralEquivalenceAvoidsRecompile(t *testing.T) {
	dir := t.TempDir()
	outName := filepath.Join(dir, "out.i")
	objName := filepath.Join(dir, "out.o")
	counter := filepath.Join(dir, "counter")

	cfg := Config{
		PreprocessorArgv:       preprocessorArgv(outName, "line one\nline two\n"),
		PreprocessorOutputName: outName,
		CompilerArgv:           compilerArgv(objName, counter),
		ObjectName:             objName,
	}

	entry := cacheentry.New(dir, "entry")
	if err := Run(entry, cfg, process.NewRunner(), nil); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Same lines, different order and byte content: structurally equivalent.
	cfg.PreprocessorArgv = preprocessorArgv(outName, "line two\nline one\n")

	reloaded, err := cacheentry.Load(dir, "entry")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if err := Run(reloaded, cfg, process.NewRunner(), nil); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if got := compileCount(t, counter); got != 1 {
		t.Errorf("structurally equivalent output should not trigger a recompile, got %d compiles", got)
	}

	final, err := cacheentry.Load(dir, "entry")
	if err != nil {
		t.Fatalf("final reload failed: %v", err)
	}
	if len(final.Accepted) != 2 {
		t.Errorf("expected the new fingerprint to be added to the accepted set, got %d entries", len(final.Accepted))
	}
}

func TestRunRealChangeTriggersRecompile(t *testing.T) {
	dir := t.TempDir()
	outName := filepath.Join(dir, "out.i")
	objName := filepath.Join(dir, "out.o")
	counter := filepath.Join(dir, "counter")

	cfg := Config{
		PreprocessorArgv:       preprocessorArgv(outName, "A"),
		PreprocessorOutputName: outName,
		CompilerArgv:           compilerArgv(objName, counter),
		ObjectName:             objName,
	}

	entry := cacheentry.New(dir, "entry")
	if err := Run(entry, cfg, process.NewRunner(), nil); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	cfg.PreprocessorArgv = preprocessorArgv(outName, "B totally different content")

	reloaded, err := cacheentry.Load(dir, "entry")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if err := Run(reloaded, cfg, process.NewRunner(), nil); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if got := compileCount(t, counter); got != 2 {
		t.Errorf("expected a second compile after a real content change, got %d", got)
	}
}

func TestRunArgvChangeTriggersRecompile(t *testing.T) {
	dir := t.TempDir()
	outName := filepath.Join(dir, "out.i")
	objName := filepath.Join(dir, "out.o")
	counter := filepath.Join(dir, "counter")

	cfg := Config{
		PreprocessorArgv:       preprocessorArgv(outName, "A"),
		PreprocessorOutputName: outName,
		CompilerArgv:           compilerArgv(objName, counter),
		ObjectName:             objName,
	}

	entry := cacheentry.New(dir, "entry")
	if err := Run(entry, cfg, process.NewRunner(), nil); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	// Same preprocessor output, but a different compiler argv.
	cfg.CompilerArgv = append(compilerArgv(objName, counter), "-O2")

	reloaded, err := cacheentry.Load(dir, "entry")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if err := Run(reloaded, cfg, process.NewRunner(), nil); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if got := compileCount(t, counter); got != 2 {
		t.Errorf("expected a recompile when the compiler argv changes, got %d", got)
	}
}

func TestRunCompilerFailureLeavesEntryUnchanged(t *testing.T) {
	dir := t.TempDir()
	outName := filepath.Join(dir, "out.i")
	objName := filepath.Join(dir, "out.o")
	counter := filepath.Join(dir, "counter")

	cfg := Config{
		PreprocessorArgv:       preprocessorArgv(outName, "A"),
		PreprocessorOutputName: outName,
		CompilerArgv:           compilerArgv(objName, counter),
		ObjectName:             objName,
	}

	entry := cacheentry.New(dir, "entry")
	if err := Run(entry, cfg, process.NewRunner(), nil); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	before, err := cacheentry.Load(dir, "entry")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	// New preprocessor content forces a recompile attempt, but the compiler
	// this time fails without touching the object or the counter.
	cfg.PreprocessorArgv = preprocessorArgv(outName, "B different")
	cfg.CompilerArgv = []string{"sh", "-c", "exit 7"}

	reloaded, err := cacheentry.Load(dir, "entry")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	err = Run(reloaded, cfg, process.NewRunner(), nil)
	if err == nil {
		t.Fatal("expected an error from a failing compiler")
	}

	after, err := cacheentry.Load(dir, "entry")
	if err != nil {
		t.Fatalf("post-failure reload failed: %v", err)
	}
	if len(after.Accepted) != 1 || !after.Accepted[0].Equal(before.Accepted[0]) {
		t.Error("on-disk entry must not claim the new fingerprint after a compiler failure")
	}
}
