package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	awsclient "github.com/systmms/devops/internal/aws"
	"github.com/systmms/devops/internal/datadog"
	"github.com/systmms/devops/internal/eks"
	opserrors "github.com/systmms/devops/internal/errors"
	"github.com/systmms/devops/internal/integration"
)

// IntegrationHealth is one row of the health report.
type IntegrationHealth struct {
	Integration string `json:"integration"`
	Healthy     bool   `json:"healthy"`
	Message     string `json:"message,omitempty"`
	Hint        string `json:"hint,omitempty"`
	Duration    string `json:"duration"`
}

type healthTarget struct {
	name string
	// build returns the checker, or the error that kept it from being built.
	build func() (integration.HealthChecker, error)
}

// NewHealthCommand creates the health command.
func NewHealthCommand(env *Env) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check connectivity and credentials for every integration",
		Long: `Run the health check of every integration and report the results.

This command checks:
- AWS credentials (sts:GetCallerIdentity)
- Kubernetes API reachability (list one namespace)
- Datadog API key validity

Exits non-zero when any integration is unhealthy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			results := runHealthChecks(ctx, env, healthTargets(env))
			if err := env.Render(results, func(w io.Writer) {
				displayHealthResults(env, w, results)
			}); err != nil {
				return err
			}

			healthy := 0
			for _, r := range results {
				if r.Healthy {
					healthy++
				}
			}
			if env.Output != OutputJSON {
				env.Printf("\nSummary: %d/%d integrations healthy\n", healthy, len(results))
			}
			if healthy < len(results) {
				return fmt.Errorf("some integrations are not healthy")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall time limit for the checks")
	return cmd
}

func healthTargets(env *Env) []healthTarget {
	return []healthTarget{
		{
			name: "aws",
			build: func() (integration.HealthChecker, error) {
				o, err := env.awsOptions()
				if err != nil {
					return nil, err
				}
				return awsclient.NewClient("HealthCheck", o...)
			},
		},
		{
			name: "kubernetes",
			build: func() (integration.HealthChecker, error) {
				o, err := env.eksOptions()
				if err != nil {
					return nil, err
				}
				return eks.NewClient("HealthCheck", o...)
			},
		},
		{
			name: "datadog",
			build: func() (integration.HealthChecker, error) {
				o, err := env.datadogOptions()
				if err != nil {
					return nil, err
				}
				return datadog.NewClient("HealthCheck", o...)
			},
		},
	}
}

// runHealthChecks runs every target concurrently. A target that cannot be
// built is reported unhealthy with the construction error.
func runHealthChecks(ctx context.Context, env *Env, targets []healthTarget) []IntegrationHealth {
	results := make([]IntegrationHealth, len(targets))

	g, gCtx := errgroup.WithContext(ctx)
	for i, t := range targets {
		g.Go(func() error {
			start := time.Now()
			res := IntegrationHealth{Integration: t.name}

			checker, err := t.build()
			switch {
			case err != nil:
				res.Message = err.Error()
				res.Hint = opserrors.Hint(err)
			case checker.HealthCheck(gCtx):
				res.Healthy = true
				res.Message = "reachable and authenticated"
			default:
				res.Message = "health check failed (run with --debug for details)"
			}
			res.Duration = time.Since(start).Round(time.Millisecond).String()

			env.Logger.Debug("%s health check finished in %s (healthy=%t)", t.name, res.Duration, res.Healthy)
			results[i] = res
			// Always nil so one failing integration does not cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func displayHealthResults(env *Env, w io.Writer, results []IntegrationHealth) {
	row(w, "INTEGRATION", "STATUS", "MESSAGE")
	for _, r := range results {
		status := env.colorize(colorRed, "✗ unhealthy")
		if r.Healthy {
			status = env.colorize(colorGreen, "✓ healthy")
		}
		row(w, r.Integration, status, r.Message)
	}
	for _, r := range results {
		if r.Hint != "" {
			_, _ = fmt.Fprintf(w, "\n%s: %s\n", r.Integration, r.Hint)
		}
	}
}
