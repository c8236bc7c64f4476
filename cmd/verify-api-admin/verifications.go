package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
)

type verificationStatusOptions struct {
	VerificationID string
	RawJSON        bool
}

func parseVerificationStatusFlags(args []string) (verificationStatusOptions, error) {
	fs := flag.NewFlagSet("verification-status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts verificationStatusOptions
	fs.StringVar(&opts.VerificationID, "id", "", "Verification ID to inspect (required)")
	fs.BoolVar(&opts.RawJSON, "json", false, "Print the raw cached JSON payload")

	if err := fs.Parse(args); err != nil {
		return verificationStatusOptions{}, err
	}

	opts.VerificationID = strings.TrimSpace(opts.VerificationID)
	if opts.VerificationID == "" {
		return verificationStatusOptions{}, errors.New("--id is required")
	}

	return opts, nil
}

func runVerificationStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseVerificationStatusFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, time.Minute)
	defer cancel()

	_, redisClient, err := connectInfraWithOptions(&connectInfraOptions{
		Logger:    cmdCtx.Logger,
		Config:    &cmdCtx.Config,
		WantDB:    false,
		WantRedis: true,
	})
	if err != nil {
		return err
	}
	if redisClient == nil {
		if writeErr := writeln(os.Stderr, "Redis client is not available"); writeErr != nil {
			return fmt.Errorf("print redis availability: %w", writeErr)
		}
		return nil
	}
	defer func() {
		if closeErr := closeInfra(nil, redisClient); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	if opts.RawJSON {
		return printRawVerificationStatus(ctx, redisClient, opts.VerificationID)
	}

	repo := data.NewVerificationStatusRepo(redisClient, data.VerificationStatusRepoConfig{
		TTL: cmdCtx.Config.Verification.StatusTTL,
	})
	status, err := repo.Get(ctx, opts.VerificationID)
	if err != nil {
		if errors.Is(err, data.ErrVerificationStatusNotFound) {
			if printErr := writef(os.Stdout, "No status record found for verification %s\n", opts.VerificationID); printErr != nil {
				return fmt.Errorf("print empty status notice: %w", printErr)
			}
			return nil
		}
		return err
	}

	ttl := fetchStatusTTL(ctx, redisClient, opts.VerificationID)
	return printVerificationStatus(status, ttl)
}

const verificationStatusKeyPrefix = "verify:status:"

func fetchStatusTTL(ctx context.Context, client redis.UniversalClient, verificationID string) *time.Duration {
	ttl, err := client.TTL(ctx, verificationStatusKeyPrefix+verificationID).Result()
	if err != nil {
		return nil
	}
	return &ttl
}

func printRawVerificationStatus(ctx context.Context, client redis.UniversalClient, verificationID string) error {
	raw, err := client.Get(ctx, verificationStatusKeyPrefix+verificationID).Bytes()
	if errors.Is(err, redis.Nil) {
		if printErr := writef(os.Stdout, "No status record found for verification %s\n", verificationID); printErr != nil {
			return fmt.Errorf("print empty status notice: %w", printErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get verification status: %w", err)
	}

	if printErr := writef(os.Stdout, "%s\n", raw); printErr != nil {
		return fmt.Errorf("print raw status payload: %w", printErr)
	}
	return nil
}

func printVerificationStatus(status *model.VerificationStatus, ttl *time.Duration) error {
	if status == nil {
		return errors.New("verification status is required")
	}

	if err := writef(os.Stdout, "\nVerification Status\n"); err != nil {
		return fmt.Errorf("print status header: %w", err)
	}
	if err := writef(os.Stdout, "Verification ID: %s\n", status.VerificationID); err != nil {
		return fmt.Errorf("print status id: %w", err)
	}
	if err := writef(os.Stdout, "State:           %s\n", status.State); err != nil {
		return fmt.Errorf("print status state: %w", err)
	}
	if status.Detail != "" {
		if err := writef(os.Stdout, "Detail:          %s\n", status.Detail); err != nil {
			return fmt.Errorf("print status detail: %w", err)
		}
	}
	if status.TaskID != "" {
		if err := writef(os.Stdout, "Task ID:         %s\n", status.TaskID); err != nil {
			return fmt.Errorf("print status task id: %w", err)
		}
	}
	if status.JobID != "" {
		if err := writef(os.Stdout, "Job ID:          %s\n", status.JobID); err != nil {
			return fmt.Errorf("print status job id: %w", err)
		}
	}
	if err := writef(os.Stdout, "Attempts:        %d\n", status.Attempts); err != nil {
		return fmt.Errorf("print status attempts: %w", err)
	}
	if err := writef(os.Stdout, "Updated At:      %s\n", status.UpdatedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("print status updated at: %w", err)
	}
	if ttl != nil {
		if err := writef(os.Stdout, "TTL:             %s\n", renderTTL(*ttl)); err != nil {
			return fmt.Errorf("print status ttl: %w", err)
		}
	}
	return nil
}

func renderTTL(d time.Duration) string {
	switch {
	case d == -1*time.Second:
		return "no expiry"
	case d == -2*time.Second:
		return "key missing"
	default:
		return d.String()
	}
}
