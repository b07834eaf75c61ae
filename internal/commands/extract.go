package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fintrack/internal/builder"
	"fintrack/internal/extractor"
	"fintrack/internal/model"
	"fintrack/internal/registry"
	"fintrack/internal/textutil"
)

type extractOutput struct {
	Rule           string                `json:"rule"`
	Type           model.TransactionType `json:"type"`
	Description    string                `json:"description"`
	Amount         string                `json:"amount"`
	OccurredAt     string                `json:"occurred_at"`
	PaymentMethod  *model.PaymentMethod  `json:"payment_method,omitempty"`
	CardLast4      *string               `json:"card_last4,omitempty"`
	PreferCardType *model.CardType       `json:"prefer_card_type,omitempty"`
	Comment        *string               `json:"comment,omitempty"`
}

func newExtractCommand() *cobra.Command {
	var bank, from, subject, file, received string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the bank extractors on a saved email body",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}

			receivedAt := time.Now().UTC()
			if received != "" {
				receivedAt, err = time.Parse(time.RFC3339, received)
				if err != nil {
					return fmt.Errorf("parsing --received: %w", err)
				}
			}

			msg := model.RawMessage{
				ID:         "local",
				From:       from,
				Subject:    subject,
				ReceivedAt: receivedAt,
				Body:       string(body),
			}
			out, err := extract(msg, bank)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&bank, "bank", "", "bank slug, e.g. pichincha")
	cmd.Flags().StringVar(&from, "from", "", "sender address")
	cmd.Flags().StringVar(&subject, "subject", "", "email subject (required)")
	cmd.Flags().StringVar(&file, "file", "", "path to the email body, HTML or text (required)")
	cmd.Flags().StringVar(&received, "received", "", "received time, RFC 3339 (default now)")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func extract(msg model.RawMessage, bankSlug string) (*extractOutput, error) {
	b := builder.New(registry.Default(), nil, builder.DefaultBudgetPolicy(), zap.NewNop())
	bank := model.BankDirectoryEntry{Slug: registry.NormalizeSlug(bankSlug)}
	if msg.From != "" {
		bank.WhitelistedSenders = []string{msg.From}
	}

	rule, ok := b.Resolve(msg, bank)
	if !ok {
		return nil, fmt.Errorf("no extractor for bank %q and subject %q", bankSlug, msg.Subject)
	}
	data := rule.Extract(msg)
	if data == nil {
		return nil, fmt.Errorf("extractor %s declined the message", rule.Name)
	}

	return &extractOutput{
		Rule:           rule.Name,
		Type:           data.Type,
		Description:    data.Description,
		Amount:         data.Amount.StringFixed(2),
		OccurredAt:     textutil.FormatISO(data.OccurredAt),
		PaymentMethod:  data.PaymentMethod,
		CardLast4:      data.CardLast4,
		PreferCardType: data.PreferCardType,
		Comment:        data.Comment,
	}, nil
}

func newRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List extractor rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tBANK\tSUBJECT MARKER\tRULE")
			for i, r := range registry.Default().Rules() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, r.BankSlug, r.SubjectMarker, r.Name)
			}
			// matched by sender, after every bank rule
			fmt.Fprintf(w, "-\t%s\t%s\t%s\n", registry.SlugDeuna, strings.Join(extractor.DeunaSubjectMarkers, "|"), "deuna.payment")
			return w.Flush()
		},
	}
}
