package commands

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/devops/internal/datadog"
)

// NewDatadogCommand creates the datadog command group.
func NewDatadogCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datadog",
		Short: "Query Datadog metrics and logs",
	}

	cmd.AddCommand(
		newDatadogQueryMetricsCommand(env),
		newDatadogListMetricsCommand(env),
		newDatadogMetricMetadataCommand(env),
		newDatadogSearchLogsCommand(env),
		newDatadogAggregateLogsCommand(env),
		newDatadogLoginCommand(env),
		newDatadogLogoutCommand(env),
	)
	return cmd
}

func metricsClient(env *Env) (*datadog.MetricsClient, error) {
	o, err := env.datadogOptions()
	if err != nil {
		return nil, err
	}
	return datadog.NewMetricsClient(o...)
}

func logsClient(env *Env) (*datadog.LogsClient, error) {
	o, err := env.datadogOptions()
	if err != nil {
		return nil, err
	}
	return datadog.NewLogsClient(o...)
}

func since(hours float64) time.Time {
	if hours <= 0 {
		return time.Time{}
	}
	return time.Now().Add(-time.Duration(hours * float64(time.Hour)))
}

func newDatadogQueryMetricsCommand(env *Env) *cobra.Command {
	var (
		query string
		hours float64
	)

	cmd := &cobra.Command{
		Use:   "query-metrics",
		Short: "Evaluate a metrics query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := metricsClient(env)
			if err != nil {
				return err
			}
			resp, err := c.QueryMetrics(cmd.Context(), query, since(hours), time.Time{})
			if err != nil {
				return err
			}
			return env.Render(resp, func(w io.Writer) {
				row(w, "METRIC", "SCOPE", "POINTS", "LAST VALUE")
				for _, s := range resp.Series {
					last := "-"
					if n := len(s.Pointlist); n > 0 && len(s.Pointlist[n-1]) > 1 && s.Pointlist[n-1][1] != nil {
						last = fmt.Sprintf("%.4g", *s.Pointlist[n-1][1])
					}
					row(w, s.GetMetric(), s.GetScope(), len(s.Pointlist), last)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Metrics query, e.g. avg:system.cpu.user{*}")
	cmd.Flags().Float64Var(&hours, "hours", 1, "Look-back window in hours")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newDatadogListMetricsCommand(env *Env) *cobra.Command {
	var (
		host  string
		hours float64
	)

	cmd := &cobra.Command{
		Use:   "list-metrics",
		Short: "List actively reporting metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := metricsClient(env)
			if err != nil {
				return err
			}
			names, err := c.ListActiveMetrics(cmd.Context(), since(hours), host)
			if err != nil {
				return err
			}
			sort.Strings(names)
			return env.Render(names, func(w io.Writer) {
				row(w, "METRIC")
				for _, n := range names {
					row(w, n)
				}
			})
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Only metrics reported by this host")
	cmd.Flags().Float64Var(&hours, "hours", 24, "Look-back window in hours")
	return cmd
}

func newDatadogMetricMetadataCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "metric-metadata NAME",
		Short: "Show the metadata of a metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := metricsClient(env)
			if err != nil {
				return err
			}
			meta, err := c.GetMetricMetadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return env.Render(meta, func(w io.Writer) {
				row(w, "TYPE", orDash(meta.GetType()))
				row(w, "UNIT", orDash(meta.GetUnit()))
				row(w, "DESCRIPTION", orDash(meta.GetDescription()))
				row(w, "INTEGRATION", orDash(meta.GetIntegration()))
			})
		},
	}
}

func newDatadogSearchLogsCommand(env *Env) *cobra.Command {
	var (
		q     datadog.LogQuery
		hours float64
	)

	cmd := &cobra.Command{
		Use:   "search-logs",
		Short: "Search logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := logsClient(env)
			if err != nil {
				return err
			}
			q.From = since(hours)
			logs, err := c.SearchLogs(cmd.Context(), q)
			if err != nil {
				return err
			}
			return env.Render(logs, func(w io.Writer) {
				row(w, "TIME", "SERVICE", "STATUS", "MESSAGE")
				for _, l := range logs {
					attrs := l.GetAttributes()
					ts := "-"
					if t, ok := attrs.GetTimestampOk(); ok {
						ts = t.UTC().Format(time.RFC3339)
					}
					row(w, ts, orDash(attrs.GetService()), orDash(attrs.GetStatus()), attrs.GetMessage())
				}
			})
		},
	}
	cmd.Flags().StringVarP(&q.Query, "query", "q", datadog.DefaultLogQuery, "Log search query")
	cmd.Flags().Int32Var(&q.Limit, "limit", datadog.DefaultLogLimit, "Maximum number of logs")
	cmd.Flags().StringVar(&q.Sort, "sort", datadog.DefaultLogSort, "timestamp or -timestamp")
	cmd.Flags().Float64Var(&hours, "hours", 1, "Look-back window in hours")
	return cmd
}

func newDatadogAggregateLogsCommand(env *Env) *cobra.Command {
	var (
		q     datadog.LogQuery
		hours float64
	)

	cmd := &cobra.Command{
		Use:   "aggregate-logs",
		Short: "Count logs, optionally grouped by facets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := logsClient(env)
			if err != nil {
				return err
			}
			q.From = since(hours)
			buckets, err := c.AggregateLogs(cmd.Context(), q)
			if err != nil {
				return err
			}
			return env.Render(buckets, func(w io.Writer) {
				row(w, "GROUP", "COUNT")
				for _, b := range buckets {
					keys := make([]string, 0, len(b.By))
					for k := range b.By {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					group := make([]string, 0, len(keys))
					for _, k := range keys {
						group = append(group, fmt.Sprintf("%s=%v", k, b.By[k]))
					}

					count := "-"
					for _, v := range b.Computes {
						if n := v.LogsAggregateBucketValueSingleNumber; n != nil {
							count = fmt.Sprintf("%.0f", *n)
						}
					}
					row(w, orDash(strings.Join(group, ",")), count)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&q.Query, "query", "q", datadog.DefaultLogQuery, "Log search query")
	cmd.Flags().StringSliceVar(&q.GroupBy, "group-by", nil, "Facets to group by, e.g. service,status")
	cmd.Flags().Float64Var(&hours, "hours", 1, "Look-back window in hours")
	return cmd
}

func newDatadogLoginCommand(env *Env) *cobra.Command {
	var apiKey, appKey string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store Datadog API and application keys in the OS keychain",
		Long: `Store Datadog API and application keys in the OS keychain.

Keys given as flags are stored as-is; missing keys are read from stdin.
Stored keys are used when --keyring is set and the keys are not present
in the environment or config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if apiKey == "" {
				if apiKey, err = prompt(env, in, "Datadog API key: "); err != nil {
					return err
				}
			}
			if appKey == "" {
				if appKey, err = prompt(env, in, "Datadog application key: "); err != nil {
					return err
				}
			}
			if apiKey == "" || appKey == "" {
				return fmt.Errorf("both an API key and an application key are required")
			}

			store := env.credentialStore()
			if err := store.Set("datadog_api_key", apiKey); err != nil {
				return err
			}
			if err := store.Set("datadog_app_key", appKey); err != nil {
				return err
			}
			env.Printf("Datadog keys stored in the OS keychain. Run commands with --keyring to use them.\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Datadog API key")
	cmd.Flags().StringVar(&appKey, "app-key", "", "Datadog application key")
	return cmd
}

func newDatadogLogoutCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored Datadog keys from the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := env.credentialStore()
			for _, key := range []string{"datadog_api_key", "datadog_app_key"} {
				if err := store.Delete(key); err != nil {
					return err
				}
			}
			env.Printf("Datadog keys removed from the OS keychain.\n")
			return nil
		},
	}
}

func prompt(env *Env, in *bufio.Reader, label string) (string, error) {
	_, _ = fmt.Fprint(env.Err, label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(label, ": "), err)
	}
	return strings.TrimSpace(line), nil
}

