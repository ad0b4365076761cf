package diff

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/hello.cc b/hello.cc
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/hello.cc
@@ -0,0 +1,5 @@
+#include <cstdio>
+
+int main() {
+  std::puts("hello");
+}
diff --git a/readme.md b/readme.md
index abc1234..def5678 100644
--- a/readme.md
+++ b/readme.md
@@ -1,3 +1,4 @@
 # Project

-Old description
+New description
+Added line
diff --git a/old.h b/old.h
deleted file mode 100644
index abc1234..0000000
--- a/old.h
+++ /dev/null
@@ -1,2 +0,0 @@
-#pragma once
-int x;
`

func TestParse(t *testing.T) {
	cs, err := Parse(sampleDiff)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(cs.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(cs.Files))
	}

	// First file: new file
	f0 := cs.Files[0]
	if f0.Status() != StatusAdded {
		t.Errorf("expected hello.cc to be added, got %s", f0.Status())
	}
	if f0.Path() != "hello.cc" {
		t.Errorf("expected path 'hello.cc', got %q", f0.Path())
	}
	if f0.AddedLines != 5 {
		t.Errorf("expected 5 added lines, got %d", f0.AddedLines)
	}

	// Second file: modified
	f1 := cs.Files[1]
	if f1.Path() != "readme.md" {
		t.Errorf("expected path 'readme.md', got %q", f1.Path())
	}
	if f1.AddedLines != 2 || f1.DeletedLines != 1 {
		t.Errorf("expected +2 -1, got +%d -%d", f1.AddedLines, f1.DeletedLines)
	}

	// Third file: deleted
	f2 := cs.Files[2]
	if f2.Status() != StatusDeleted || f2.Path() != "old.h" {
		t.Errorf("expected deleted old.h, got %s %s", f2.Status(), f2.Path())
	}

	files, added, deleted := cs.Stats()
	if files != 3 || added != 7 || deleted != 3 {
		t.Errorf("stats: got %d files +%d -%d", files, added, deleted)
	}

	assert.Equal(t, []string{"hello.cc", "readme.md", "old.h"}, cs.Paths())
}

func TestParseEmpty(t *testing.T) {
	cs, err := Parse("")
	if err != nil {
		t.Fatalf("Parse empty failed: %v", err)
	}
	if len(cs.Files) != 0 {
		t.Errorf("expected 0 files, got %d", len(cs.Files))
	}
}

func TestAddedLineNumbers(t *testing.T) {
	cs, err := Parse(sampleDiff)
	require.NoError(t, err)

	added := cs.Files[1].Added()
	require.Len(t, added, 2)
	assert.Equal(t, Line{Number: 3, Text: "New description"}, added[0])
	assert.Equal(t, Line{Number: 4, Text: "Added line"}, added[1])
}

const noEOLDiff = `diff --git a/a.h b/a.h
new file mode 100644
--- /dev/null
+++ b/a.h
@@ -0,0 +1,2 @@
+#pragma once
+int a;
\ No newline at end of file
`

func TestAddedNoEOL(t *testing.T) {
	cs, err := Parse(noEOLDiff)
	require.NoError(t, err)

	added := cs.Files[0].Added()
	require.Len(t, added, 2)
	assert.False(t, added[0].NoEOL)
	assert.True(t, added[1].NoEOL)
	assert.Equal(t, "int a;", added[1].Text)
}

func TestContentOfNewFile(t *testing.T) {
	cs, err := Parse(sampleDiff)
	require.NoError(t, err)

	data, err := cs.Files[0].Content()
	require.NoError(t, err)
	assert.Equal(t, "#include <cstdio>\n\nint main() {\n  std::puts(\"hello\");\n}\n", string(data))

	_, err = cs.Files[1].Content()
	assert.True(t, errors.Is(err, ErrNoContent))

	_, err = cs.Files[2].Content()
	assert.True(t, errors.Is(err, ErrNoContent))
}

func TestPatchSourceReadsRepoContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("# Project\n\nNew description\nAdded line\n"), 0o644))

	src := &PatchSource{Reader: strings.NewReader(sampleDiff), RepoDir: dir}
	cs, err := src.ChangeSet(context.Background())
	require.NoError(t, err)
	require.Len(t, cs.Files, 3)

	data, err := cs.Files[1].Content()
	require.NoError(t, err)
	assert.Contains(t, string(data), "Added line")

	// new files still come from the patch itself
	data, err = cs.Files[0].Content()
	require.NoError(t, err)
	assert.Contains(t, string(data), "std::puts")
}

func TestPatchSourceStaysInRepo(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	require.NoError(t, os.Mkdir(repo, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("token\n"), 0o644))

	raw := `diff --git a/../secret.txt b/../secret.txt
index abc1234..def5678 100644
--- a/../secret.txt
+++ b/../secret.txt
@@ -1 +1 @@
-old
+token
`
	src := &PatchSource{Reader: strings.NewReader(raw), RepoDir: repo}
	cs, err := src.ChangeSet(context.Background())
	require.NoError(t, err)
	require.Len(t, cs.Files, 1)

	_, err = cs.Files[0].Content()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the repository")
}

func TestWorktreeLoaderRejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.cc"), []byte("int a;\n"), 0o644))
	load := worktreeLoader(dir)

	data, err := load("ok.cc")
	require.NoError(t, err)
	assert.Equal(t, "int a;\n", string(data))

	for _, path := range []string{"../ok.cc", "sub/../../ok.cc", "/etc/passwd"} {
		_, err := load(path)
		assert.Error(t, err, path)
	}
}

func TestGitSource(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-c", "user.name=t", "-c", "user.email=t@example.com"}, args...)...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	write := func(name, body string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	run("init", "-q")
	write("a.cc", "int a;\n")
	run("add", "a.cc")
	run("commit", "-q", "-m", "init")

	write("a.cc", "int a;\nint b;\n")
	write("b.h", "int c;\n")
	run("add", "b.h")

	ctx := context.Background()

	cs, err := (&GitSource{RepoDir: dir}).ChangeSet(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.cc", "b.h"}, cs.Paths())

	data, err := cs.Files[0].Content()
	require.NoError(t, err)
	assert.Equal(t, "int a;\nint b;\n", string(data))

	staged, err := (&GitSource{RepoDir: dir, Staged: true}).ChangeSet(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b.h"}, staged.Paths())

	data, err = staged.Files[0].Content()
	require.NoError(t, err)
	assert.Equal(t, "int c;\n", string(data))
}

func TestGitSourceOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	_, err := (&GitSource{RepoDir: t.TempDir()}).ChangeSet(context.Background())
	require.Error(t, err)
}
