package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/roadsideiq/verify-api/internal/data"
)

const minPasswordLength = 8

type createUserOptions struct {
	Username string
	Password string
	Timeout  time.Duration
}

func parseCreateUserFlags(args []string) (createUserOptions, error) {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := createUserOptions{
		Timeout: time.Minute,
	}
	fs.StringVar(&opts.Username, "username", "", "Username for the new API user (required)")
	fs.StringVar(&opts.Password, "password", "", "Password for the new API user (prompted when omitted)")
	fs.DurationVar(&opts.Timeout, "timeout", time.Minute, "Maximum duration to wait for user creation")

	if err := fs.Parse(args); err != nil {
		return createUserOptions{}, err
	}

	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" {
		return createUserOptions{}, errors.New("--username is required")
	}
	if opts.Timeout <= 0 {
		return createUserOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func runCreateUser(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateUserFlags(args)
	if err != nil {
		return err
	}

	password := opts.Password
	if password == "" {
		password, err = promptPassword(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	cost := cmdCtx.Config.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		user, createErr := data.NewUserRepo(db).Create(ctx, opts.Username, string(hash))
		if createErr != nil {
			if errors.Is(createErr, data.ErrUsernameExists) {
				return fmt.Errorf("username %q is already taken", opts.Username)
			}
			return createErr
		}

		if printErr := writef(os.Stdout, "Created user %q (id %s)\n", user.Username, user.ID); printErr != nil {
			return fmt.Errorf("print created user: %w", printErr)
		}
		return nil
	})
}

func promptPassword(in io.Reader, out io.Writer) (string, error) {
	if err := write(out, "Password: "); err != nil {
		return "", fmt.Errorf("print password prompt: %w", err)
	}
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}
