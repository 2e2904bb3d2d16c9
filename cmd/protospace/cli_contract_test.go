package main

import (
	"bufio"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"protospace/internal/config"
)

var (
	configKeyBullet = regexp.MustCompile("^- `([a-z0-9_.]+)`")
	envKeyPattern   = regexp.MustCompile(`PROTOSPACE_[A-Z0-9_]+`)
)

// runtimeEnvKeys are the variables read anywhere in the binary.
var runtimeEnvKeys = []string{
	"PROTOSPACE_LISTEN_URL", "PROTOSPACE_DB", "PROTOSPACE_LOG_LEVEL", "PROTOSPACE_CONFIG_DIR",
	"PROTOSPACE_SESSION_TTL", "PROTOSPACE_TOKEN_SECRET", "PROTOSPACE_TOKEN_TTL",
	"PROTOSPACE_UPLOAD_MAX_BYTES", "PROTOSPACE_BLOB_BACKEND", "PROTOSPACE_BLOB_ROOT",
	"PROTOSPACE_S3_BUCKET", "PROTOSPACE_S3_REGION", "PROTOSPACE_S3_ENDPOINT",
	"PROTOSPACE_S3_ACCESS_KEY", "PROTOSPACE_S3_SECRET_KEY",
	"PROTOSPACE_API_TOKEN", "PROTOSPACE_HTTP_TIMEOUT", "PROTOSPACE_ALLOW_REMOTE",
}

func TestReadmeDocumentsEveryConfigKey(t *testing.T) {
	var documented []string
	inSection := false
	for _, line := range readmeLines(t) {
		switch {
		case line == "Supported config keys:":
			inSection = true
		case inSection && strings.HasPrefix(line, "- "):
			m := configKeyBullet.FindStringSubmatch(line)
			if m == nil {
				t.Fatalf("config key bullet without a backticked key: %q", line)
			}
			documented = append(documented, m[1])
		case inSection && len(documented) > 0 && line != "":
			inSection = false
		}
	}

	assertSameSet(t, "config keys", config.AllowedKeys(), documented)
}

func TestReadmeCommandsMatchCLI(t *testing.T) {
	var documented []string
	section, inFence := false, false
	for _, line := range readmeLines(t) {
		switch {
		case strings.HasPrefix(line, "## "):
			section = line == "## Commands"
		case section && strings.HasPrefix(line, "```"):
			if inFence {
				section = false
			}
			inFence = !inFence
		case section && inFence && strings.HasPrefix(line, "protospace "):
			if path := commandPath(line); path != "" {
				documented = append(documented, path)
			}
		}
	}

	cfg := config.Default()
	assertSameSet(t, "commands", leafCommands(newRootCmd(&cfg), ""), documented)
}

func TestReadmeDocumentsRuntimeEnv(t *testing.T) {
	documented := envKeyPattern.FindAllString(strings.Join(readmeLines(t), "\n"), -1)
	for _, key := range runtimeEnvKeys {
		if !slices.Contains(documented, key) {
			t.Errorf("README does not mention %s", key)
		}
	}
}

const defaultMaxCmdConstructorLines = 100

// Command constructors only wire flags and delegate; logic belongs in helpers.
func TestCommandConstructorsStaySmall(t *testing.T) {
	limit := defaultMaxCmdConstructorLines
	if v, err := strconv.Atoi(os.Getenv("PROTOSPACE_MAX_CMD_CONSTRUCTOR_LINES")); err == nil && v > 0 {
		limit = v
	}

	dir := packageDir(t)
	sources, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		t.Fatalf("glob sources: %v", err)
	}
	fset := token.NewFileSet()
	for _, path := range sources {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			t.Fatalf("parse %s: %v", path, err)
		}
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Body == nil || !strings.HasPrefix(fn.Name.Name, "new") || !strings.HasSuffix(fn.Name.Name, "Cmd") {
				continue
			}
			lines := fset.Position(fn.Body.Rbrace).Line - fset.Position(fn.Body.Lbrace).Line + 1
			if lines > limit {
				t.Errorf("%s in %s spans %d lines (max %d)", fn.Name.Name, filepath.Base(path), lines, limit)
			}
		}
	}
}

// commandPath keeps the words of a usage line up to the first placeholder,
// flag, quote or comment.
func commandPath(line string) string {
	var words []string
	for _, word := range strings.Fields(line)[1:] {
		if strings.ContainsAny(word[:1], "#<[-") || strings.ContainsAny(word, `"'`) {
			break
		}
		words = append(words, word)
	}
	return strings.Join(words, " ")
}

func leafCommands(cmd *cobra.Command, prefix string) []string {
	var out []string
	for _, child := range cmd.Commands() {
		if child.Hidden || child.Name() == "help" || child.Name() == "completion" {
			continue
		}
		path := strings.TrimSpace(prefix + " " + child.Name())
		if sub := leafCommands(child, path); len(sub) > 0 {
			out = append(out, sub...)
		} else if !child.HasSubCommands() {
			out = append(out, path)
		}
	}
	return out
}

func assertSameSet(t *testing.T, what string, want, got []string) {
	t.Helper()
	want, got = slices.Clone(want), slices.Clone(got)
	slices.Sort(want)
	slices.Sort(got)
	want, got = slices.Compact(want), slices.Compact(got)
	if !slices.Equal(want, got) {
		t.Fatalf("README %s mismatch\nexpected: %v\ndocumented: %v", what, want, got)
	}
}

func readmeLines(t *testing.T) []string {
	t.Helper()
	f, err := os.Open(filepath.Join(packageDir(t), "..", "..", "README.md"))
	if err != nil {
		t.Fatalf("open README.md: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("read README.md: %v", err)
	}
	return lines
}

func packageDir(t *testing.T) string {
	t.Helper()
	_, self, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Dir(self)
}
