package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	awsclient "github.com/systmms/devops/internal/aws"
	"github.com/systmms/devops/internal/config"
	"github.com/systmms/devops/internal/credstore"
	"github.com/systmms/devops/internal/datadog"
	"github.com/systmms/devops/internal/eks"
	"github.com/systmms/devops/internal/logging"
	"github.com/systmms/devops/internal/telemetry"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// Env carries the global flags and shared state into every command. The
// root command fills it in PersistentPreRunE.
type Env struct {
	ConfigPath  string
	Debug       bool
	NoColor     bool
	Output      string
	UseKeyring  bool
	MetricsFile string

	Out io.Writer
	Err io.Writer

	Logger   *logging.Logger
	Recorder *telemetry.Recorder
	Store    credstore.Store

	// Extra client options, appended after the defaults. Tests use them to
	// inject fake APIs.
	AWSOptions     []awsclient.Option
	EKSOptions     []eks.Option
	DatadogOptions []datadog.Option

	mu  sync.Mutex
	cfg *config.Config
}

// NewEnv returns an Env writing to stdout and stderr.
func NewEnv() *Env {
	return &Env{
		Output:   OutputTable,
		Out:      os.Stdout,
		Err:      os.Stderr,
		Logger:   logging.Default(),
		Recorder: telemetry.NewRecorder(),
	}
}

// Config loads the configuration file once per process. It is safe for
// concurrent use; a failed load is retried on the next call.
func (e *Env) Config() (*config.Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg != nil {
		return e.cfg, nil
	}

	var opts []config.Option
	if e.UseKeyring {
		opts = append(opts, config.WithCredentialStore(e.storeLocked()))
	}
	cfg, err := config.Load(e.ConfigPath, opts...)
	if err != nil {
		return nil, err
	}
	e.cfg = cfg
	return cfg, nil
}

func (e *Env) credentialStore() credstore.Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.storeLocked()
}

func (e *Env) storeLocked() credstore.Store {
	if e.Store == nil {
		e.Store = credstore.NewKeyring()
	}
	return e.Store
}

func (e *Env) awsOptions(extra ...awsclient.Option) ([]awsclient.Option, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	opts := []awsclient.Option{
		awsclient.WithConfig(cfg),
		awsclient.WithLogger(e.Logger),
		awsclient.WithRecorder(e.Recorder),
	}
	opts = append(opts, extra...)
	return append(opts, e.AWSOptions...), nil
}

func (e *Env) eksOptions(extra ...eks.Option) ([]eks.Option, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	opts := []eks.Option{
		eks.WithConfig(cfg),
		eks.WithLogger(e.Logger),
		eks.WithRecorder(e.Recorder),
	}
	opts = append(opts, extra...)
	return append(opts, e.EKSOptions...), nil
}

func (e *Env) datadogOptions() ([]datadog.Option, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	opts := []datadog.Option{
		datadog.WithConfig(cfg),
		datadog.WithLogger(e.Logger),
		datadog.WithRecorder(e.Recorder),
	}
	return append(opts, e.DatadogOptions...), nil
}

// Render writes v as indented JSON when --output json is set, otherwise
// calls table with a tabwriter that is flushed afterwards.
func (e *Env) Render(v any, table func(w io.Writer)) error {
	if e.Output == OutputJSON {
		enc := json.NewEncoder(e.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	w := tabwriter.NewWriter(e.Out, 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}

// Printf writes to the command output.
func (e *Env) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.Out, format, args...)
}

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
)

func (e *Env) colorize(color, s string) string {
	if e.NoColor {
		return s
	}
	return color + s + colorReset
}

func row(w io.Writer, cols ...any) {
	for i, c := range cols {
		if i > 0 {
			_, _ = fmt.Fprint(w, "\t")
		}
		_, _ = fmt.Fprint(w, c)
	}
	_, _ = fmt.Fprintln(w)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
