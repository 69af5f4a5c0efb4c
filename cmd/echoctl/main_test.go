package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "echoctl")
}

func Test_cfgDir_And_Paths(t *testing.T) {
	base := withTmpConfig(t)
	if got := cfgDir(); got != base {
		t.Fatalf("cfgDir=%q, want %q", got, base)
	}
	if !strings.HasPrefix(tokenPath(), base) || !strings.HasSuffix(tokenPath(), "token.json") {
		t.Fatalf("tokenPath unexpected: %s", tokenPath())
	}
}

func Test_token_SaveLoad(t *testing.T) {
	_ = withTmpConfig(t)

	if _, err := loadToken(); err == nil {
		t.Fatalf("expected error when token file missing")
	}
	if err := saveToken("tok", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("saveToken: %v", err)
	}
	tok, err := loadToken()
	if err != nil || tok != "tok" {
		t.Fatalf("loadToken: tok=%q err=%v", tok, err)
	}
	fi, err := os.Stat(tokenPath())
	if err != nil || fi.Mode().Perm() != 0o600 {
		t.Fatalf("token file mode: %v %v", fi, err)
	}
	if err := saveToken("tok2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("saveToken expired: %v", err)
	}
	if _, err := loadToken(); err == nil {
		t.Fatalf("want error for expired token")
	}
}

func Test_printJSON_WritesPretty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printJSON(&buf, map[string]int{"a": 1})
	if !strings.Contains(buf.String(), "\n  \"a\": 1") {
		t.Fatalf("not indented: %q", buf.String())
	}
	var back map[string]int
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil || back["a"] != 1 {
		t.Fatalf("roundtrip: %v %v", back, err)
	}
}

func Test_run_VersionAndUsage(t *testing.T) {
	_ = withTmpConfig(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := run(ctx, []string{"version"}, &out); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "echoctl dev") {
		t.Fatalf("version output: %q", out.String())
	}

	for _, args := range [][]string{
		nil,
		{"frobnicate"},
		{"issue-token", "-user", "nope"},
		{"-token", "x", "grants"},
		{"-token", "x", "grants", "usages"},
		{"-token", "x", "users", "import"},
	} {
		if err := run(ctx, args, &out); !errors.Is(err, errUsage) {
			t.Fatalf("run(%v): want usage error, got %v", args, err)
		}
	}
}

func Test_run_RequiresToken(t *testing.T) {
	_ = withTmpConfig(t)
	if err := run(context.Background(), []string{"balance"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error without a saved token")
	}
}
