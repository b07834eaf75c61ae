package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/repository"
	"fintrack/internal/textutil"
	"fintrack/pkg/db"
	"fintrack/pkg/mq"
	"fintrack/pkg/outbox"
	"fintrack/pkg/redis"
	"fintrack/pkg/util"
)

func newOutboxCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Operate the transaction event outbox",
	}

	var eventID int64
	var limit int
	replay := &cobra.Command{
		Use:   "replay",
		Short: "Republish outbox events that ran out of retries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			ctx := cmd.Context()

			pool, err := db.NewConnection(ctx, cfg.DB, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			publisher, err := mq.NewPublisher(cfg.MQ.URL)
			if err != nil {
				return err
			}
			defer publisher.Close()

			svc := outbox.NewReplayService(outbox.NewRepository(pool), publisher, log)
			if eventID > 0 {
				if err := svc.ReplayEvent(ctx, eventID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replayed event %d\n", eventID)
				return nil
			}
			n, err := svc.ReplayFailedEvents(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d events\n", n)
			return nil
		},
	}
	replay.Flags().Int64Var(&eventID, "id", 0, "replay a single event")
	replay.Flags().IntVar(&limit, "limit", 100, "maximum failed events to replay")

	cmd.AddCommand(replay)
	return cmd
}

func newFailuresCommand(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List recent extraction failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			pool, err := db.NewConnection(cmd.Context(), cfg.DB, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			failures, err := repository.NewExtractionFailureRepository(pool).ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tREASON\tBANK\tSENDER\tSUBJECT")
			for _, f := range failures {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", textutil.FormatISO(f.CreatedAt), f.Reason, f.BankSlug, f.Sender, f.Subject)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of failures to show")

	return cmd
}

func newTokenCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage cached mail access tokens",
	}

	var ttl time.Duration
	set := &cobra.Command{
		Use:   "set <subscription-id> <access-token>",
		Short: "Cache the access token the worker uses for a subscription",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			rdb, err := redis.NewRedisClient(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()

			if ttl <= 0 {
				ttl = util.TokenTTL(args[1], time.Now(), time.Hour)
				if ttl <= 0 {
					return fmt.Errorf("token for %s is already expired", args[0])
				}
			}
			if err := repository.NewRedisTokenStore(rdb).Set(ctx, args[0], args[1], ttl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token cached for %s (ttl %s)\n", args[0], ttl)
			return nil
		},
	}
	set.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: the token's exp claim, else 1h)")

	cmd.AddCommand(set)
	return cmd
}
