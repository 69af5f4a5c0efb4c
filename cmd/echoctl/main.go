// Command echoctl is an admin CLI for the Echo metering service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "echoctl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "echoctl")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (run issue-token or refresh)")
	}
	return tf.AccessToken, nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

const usageText = `echoctl
Usage:
  echoctl [-addr URL] [-token TOKEN] <cmd> [args]

Commands:
  version
  issue-token  -user <uuid>                  (direct DB; reads DATABASE_URL, JWT_SIGNING_KEY)
  refresh      -token <refresh token>        (saves access token)
  balance
  grants create -amount <decimal> -name <s> [-description <s>] [-expires RFC3339]
  grants list   [-page N] [-page-size N]
  grants usages -code <code> [-page N] [-page-size N]
  users export  -after YYYY-MM-DD [-o file]
`

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against the HTTP API.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx, os.Args[1:], os.Stdout)
	cancel()
	if errors.Is(err, errUsage) {
		if err != errUsage {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

var errUsage = errors.New("usage")

// run parses global flags and executes one subcommand.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("echoctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", envOr("ECHO_ADDR", "http://localhost:8080"), "server base URL")
	token := fs.String("token", "", "access token (defaults to the saved token)")
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		return errUsage
	}
	rest := fs.Args()[1:]

	bearer := func() (string, error) {
		if *token != "" {
			return *token, nil
		}
		return loadToken()
	}
	newClient := func() (*apiClient, error) {
		tok, err := bearer()
		if err != nil {
			return nil, err
		}
		return newAPIClient(*addr, tok), nil
	}

	switch cmd := fs.Arg(0); cmd {
	case "version":
		fmt.Fprintf(stdout, "echoctl %s (%s)\n", version, buildDate)
		return nil
	case "issue-token":
		return cmdIssueToken(ctx, rest, stdout)
	case "refresh":
		return cmdRefresh(ctx, newAPIClient(*addr, ""), rest, stdout)
	case "balance":
		cl, err := newClient()
		if err != nil {
			return err
		}
		b, err := cl.Balance(ctx)
		if err != nil {
			return err
		}
		printJSON(stdout, b)
		return nil
	case "grants":
		cl, err := newClient()
		if err != nil {
			return err
		}
		return cmdGrants(ctx, cl, rest, stdout)
	case "users":
		cl, err := newClient()
		if err != nil {
			return err
		}
		return cmdUsers(ctx, cl, rest, stdout)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fail(err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "error: %s (%s, http %d)\n", ae.Message, ae.Code, ae.Status)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
