package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gratitude5dee/kumorfm-go/internal/client"
	"github.com/gratitude5dee/kumorfm-go/pkg/query"
)

type queryFlags struct {
	raw     string
	predict string
	entity  []string
	where   []string
	groupBy []string
	orderBy []string
	limit   int
}

func (f *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.predict, "predict", "", "PREDICT target, e.g. 'COUNT(orders.*, 0, 30, days) > 0'")
	cmd.Flags().StringArrayVar(&f.entity, "for", nil, "FOR entity (repeatable)")
	cmd.Flags().StringArrayVar(&f.where, "where", nil, "WHERE condition, joined with AND (repeatable)")
	cmd.Flags().StringArrayVar(&f.groupBy, "group-by", nil, "GROUP BY field (repeatable)")
	cmd.Flags().StringArrayVar(&f.orderBy, "order-by", nil, "ORDER BY field (repeatable)")
	cmd.Flags().IntVar(&f.limit, "limit", -1, "LIMIT (negative for none)")
}

func (f *queryFlags) builder() *query.Builder {
	b := query.NewBuilder().
		Predict(f.predict).
		For(f.entity...).
		Where(f.where...)
	if len(f.groupBy) > 0 {
		b.GroupBy(f.groupBy...)
	}
	if len(f.orderBy) > 0 {
		b.OrderBy(f.orderBy...)
	}
	if f.limit >= 0 {
		b.Limit(f.limit)
	}
	return b
}

// build returns the raw query when given, otherwise the built one
func (f *queryFlags) build() (string, error) {
	if f.raw != "" {
		return f.raw, nil
	}
	return f.builder().Build()
}

func newQueryCmd() *cobra.Command {
	f := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Build a PQL query string",
		Example: `  kumo query --predict 'COUNT(orders.*, 0, 30, days) > 0' --for users.user_id=1
  kumo query --predict 'SUM(orders.amount, 0, 7, days)' --where 'users.age > 30' --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.build()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), q)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newPredictCmd(global *globalFlags) *cobra.Command {
	f := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Send a PQL query to the prediction service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup("KUMO_API_KEY")
			if err != nil {
				return err
			}

			q, err := f.build()
			if err != nil {
				return err
			}
			if f.raw != "" {
				logger.Debugf("Sending raw query with target %q", query.Parse(f.raw).Target())
			}

			c, err := client.New(cfg, logger)
			if err != nil {
				return err
			}

			res, err := c.Predict(cmd.Context(), q)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVarP(&f.raw, "query", "q", "", "Send this PQL string as is")
	cmd.MarkFlagsMutuallyExclusive("query", "predict")
	return cmd
}
