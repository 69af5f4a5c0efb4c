package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/ArDnath/echo/internal/config"
	"github.com/ArDnath/echo/internal/convert"
	"github.com/ArDnath/echo/internal/limiter"
	"github.com/ArDnath/echo/internal/logging"
	"github.com/ArDnath/echo/internal/repository/postgres"
	"github.com/ArDnath/echo/internal/service"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

type issuedToken struct {
	convert.TokenDTO
	SessionID string `json:"session_id"`
}

// cmdIssueToken starts a session straight against the database. It bootstraps
// the first admin before any token exists to call the API with.
func cmdIssueToken(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet("issue-token")
	user := fs.String("user", "", "user id")
	save := fs.Bool("save", true, "save the access token for later commands")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	uid, err := uuid.FromString(strings.TrimSpace(*user))
	if err != nil {
		return fmt.Errorf("-user must be a uuid: %w", errUsage)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewTokenService(postgres.NewTokenRepo(db), []byte(cfg.JWTSigningKey), cfg.TokenPolicy(log), limiter.Nop{}, log)
	tokens, err := svc.IssueSession(ctx, uid)
	if err != nil {
		return err
	}
	if *save {
		if err := saveToken(tokens.AccessToken, tokens.AccessExpiresAt); err != nil {
			return err
		}
	}
	printJSON(stdout, issuedToken{TokenDTO: convert.ToToken(tokens, time.Now()), SessionID: tokens.SessionID.String()})
	return nil
}

func cmdRefresh(ctx context.Context, cl *apiClient, args []string, stdout io.Writer) error {
	fs := newFlagSet("refresh")
	refresh := fs.String("token", "", "refresh token")
	if err := fs.Parse(args); err != nil || *refresh == "" {
		return errUsage
	}
	tok, err := cl.Refresh(ctx, *refresh)
	if err != nil {
		return err
	}
	if err := saveToken(tok.AccessToken, time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second)); err != nil {
		return err
	}
	printJSON(stdout, tok)
	return nil
}

func cmdGrants(ctx context.Context, cl *apiClient, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	switch args[0] {
	case "create":
		fs := newFlagSet("grants create")
		amount := fs.String("amount", "", "credits to mint per redemption")
		name := fs.String("name", "", "display name")
		desc := fs.String("description", "", "description")
		expires := fs.String("expires", "", "expiry (RFC3339)")
		if err := fs.Parse(args[1:]); err != nil || *amount == "" {
			return errUsage
		}
		req := convert.GrantRequest{Amount: *amount, Name: *name, Description: *desc}
		if *expires != "" {
			t, err := time.Parse(time.RFC3339, *expires)
			if err != nil {
				return fmt.Errorf("-expires: %w", err)
			}
			req.ExpiresAt = &t
		}
		g, err := cl.CreateGrant(ctx, req)
		if err != nil {
			return err
		}
		printJSON(stdout, g)
		return nil

	case "list":
		fs := newFlagSet("grants list")
		page := fs.Int("page", 0, "zero-based page")
		size := fs.Int("page-size", 20, "page size")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		out, err := cl.ListGrants(ctx, *page, *size)
		if err != nil {
			return err
		}
		printJSON(stdout, out)
		return nil

	case "usages":
		fs := newFlagSet("grants usages")
		code := fs.String("code", "", "grant code")
		page := fs.Int("page", 0, "zero-based page")
		size := fs.Int("page-size", 20, "page size")
		if err := fs.Parse(args[1:]); err != nil || *code == "" {
			return errUsage
		}
		out, err := cl.GrantUsages(ctx, *code, *page, *size)
		if err != nil {
			return err
		}
		printJSON(stdout, out)
		return nil
	}
	return fmt.Errorf("unknown grants command %q: %w", args[0], errUsage)
}

func cmdUsers(ctx context.Context, cl *apiClient, args []string, stdout io.Writer) error {
	if len(args) < 1 || args[0] != "export" {
		return errUsage
	}
	fs := newFlagSet("users export")
	after := fs.String("after", "", "created on or after (YYYY-MM-DD)")
	outPath := fs.String("o", "", "output file, - for stdout (default: server filename)")
	if err := fs.Parse(args[1:]); err != nil || *after == "" {
		return errUsage
	}
	if _, err := time.Parse(time.DateOnly, *after); err != nil {
		return errors.New("-after must be YYYY-MM-DD")
	}

	name, body, err := cl.ExportUsers(ctx, *after)
	if err != nil {
		return err
	}
	if *outPath == "-" {
		_, err := stdout.Write(body)
		return err
	}
	name = filepath.Base(name)
	if *outPath != "" {
		name = *outPath
	}
	if err := os.WriteFile(name, body, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d bytes to %s\n", len(body), name)
	return nil
}
