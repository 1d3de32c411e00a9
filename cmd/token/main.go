// Package main mints bearer tokens for the video upload API using the
// server's JWT_SECRET. Deployments with their own identity provider sign
// tokens there instead; this command covers local setups and smoke tests.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/maauso/videoupload-api/internal/auth"
	"github.com/maauso/videoupload-api/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fset := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fset.String("user", "", "user id to put in the token subject")
	ttl := fset.Duration("ttl", 24*time.Hour, "token lifetime; 0 disables expiry")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return errors.New("-user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("create token issuer: %w", err)
	}

	token, err := tokens.Issue(*userID, *ttl)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, token)
	return err
}
