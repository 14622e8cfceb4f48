package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunExtension(t *testing.T) {
	s := setup(t)
	dir := t.TempDir()
	script := "#!/bin/sh\necho \"args=$*\"\necho \"config=$CPT_CONFIG\"\necho \"verbose=$CPT_VERBOSE\"\nexit 3\n"
	if err := os.WriteFile(filepath.Join(dir, "cpt-hello"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	found, code := RunExtension("hello", []string{"a", "b"})
	if !found {
		t.Fatalf("RunExtension(hello) did not find cpt-hello")
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	got := s.out.String()
	for _, want := range []string{"args=a b", "config=" + *configFile, "verbose=false"} {
		if !strings.Contains(got, want) {
			t.Errorf("extension output does not contain %q:\n%s", want, got)
		}
	}

	if found, _ := RunExtension("missing", nil); found {
		t.Errorf("RunExtension(missing) found an extension")
	}
}

func TestIsCommand(t *testing.T) {
	for _, name := range []string{"add", "show", "restore", "topic", "help"} {
		if !IsCommand(name) {
			t.Errorf("IsCommand(%q) = false", name)
		}
	}
	if IsCommand("hello") {
		t.Errorf("IsCommand(hello) = true")
	}
}
