package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wesleyorama2/volley/http"
	"github.com/wesleyorama2/volley/internal/config"
	"github.com/wesleyorama2/volley/internal/output"
	"github.com/wesleyorama2/volley/internal/runner"
	"github.com/wesleyorama2/volley/internal/stats"
)

type runFlags struct {
	configFile  string
	environment string
	request     string
	suite       string
	iterations  int
	concurrency int
	rate        float64
	timeout     time.Duration
	verbose     bool
	noColor     bool
	quiet       bool
	format      string
	debugFile   string
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run requests or suites from a collection file",
		Example: `  volley run -c api.yaml -e dev -r getUser
  volley run -c api.yaml -e dev -s userFlow --iterations 20 --quiet
  volley run -c api.yaml -e dev -r getUser -n 200 --concurrency 8 --rate 50 --quiet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configFile, "config", "c", "", "Collection file (required)")
	flags.StringVarP(&f.environment, "environment", "e", "", "Environment to use (required)")
	flags.StringVarP(&f.request, "request", "r", "", "Request to run")
	flags.StringVarP(&f.suite, "suite", "s", "", "Suite to run")
	flags.IntVarP(&f.iterations, "iterations", "n", 1, "Number of times to run the request or suite")
	flags.IntVar(&f.concurrency, "concurrency", 1, "Number of iterations to run in parallel")
	flags.Float64Var(&f.rate, "rate", 0, "Maximum iterations started per second (0 for no limit)")
	flags.DurationVarP(&f.timeout, "timeout", "t", 30*time.Second, "Request timeout")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&f.quiet, "quiet", false, "Only print check results and the latency summary")
	flags.StringVar(&f.format, "output", "text", "Output format for requests and responses (text, json, yaml)")
	flags.StringVar(&f.debugFile, "debug-file", "", "Write wire traces of debug requests to this file instead of stderr")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("environment")
	cmd.MarkFlagsOneRequired("request", "suite")
	cmd.MarkFlagsMutuallyExclusive("request", "suite")

	return cmd
}

func (a *app) run(cmd *cobra.Command, f *runFlags) error {
	stdout := &lockedWriter{w: cmd.OutOrStdout()}

	if f.iterations < 1 {
		return errors.Errorf("iterations must be at least 1, got %d", f.iterations)
	}
	if f.concurrency < 1 {
		return errors.Errorf("concurrency must be at least 1, got %d", f.concurrency)
	}
	format, err := output.ParseFormat(f.format)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(f.configFile)
	if err != nil {
		return err
	}
	if problems := config.ValidateConfig(cfg); len(problems) > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Configuration validation errors:")
		for _, p := range problems {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", p.Error())
		}
		return errors.Errorf("%d configuration errors in %s", len(problems), f.configFile)
	}

	var debugOut io.Writer = cmd.ErrOrStderr()
	if f.debugFile != "" {
		file, err := os.OpenFile(f.debugFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "opening debug file")
		}
		defer file.Close()
		debugOut = file
	}

	noColor := f.noColor || !output.ColorEnabled(cmd.OutOrStdout())
	colors := output.NewColorScheme(noColor)
	recorder := stats.NewRecorder()

	options := []runner.Option{
		runner.WithLogger(a.logger),
		runner.WithRecorder(recorder),
		runner.WithDebugOutput(debugOut),
		runner.WithTransportFactory(func(baseURI string) http.Transport {
			return http.NewClient(http.WithBaseURL(baseURI), http.WithTimeout(f.timeout))
		}),
	}
	if !f.quiet {
		options = append(options, runner.WithOutput(stdout, output.GetFormatter(format, f.verbose, noColor)))
	}

	var (
		mu     sync.Mutex
		failed int
	)
	err = runner.Iterate(cmd.Context(), f.iterations, f.concurrency, runner.NewPacer(f.rate),
		func(ctx context.Context, iteration int) error {
			// Each iteration starts from the environment's variables.
			r, err := runner.New(cfg, f.environment, options...)
			if err != nil {
				return err
			}

			var results []runner.Result
			if f.request != "" {
				var result *runner.Result
				result, err = r.RunRequest(ctx, f.request)
				if result != nil {
					results = append(results, *result)
				}
			} else {
				results, err = r.RunSuite(ctx, f.suite)
			}

			mu.Lock()
			defer mu.Unlock()
			for _, result := range results {
				failed += reportResult(stdout, colors, result, f.iterations > 1, iteration)
			}
			return err
		})
	if err != nil {
		return err
	}

	if f.iterations > 1 || f.suite != "" {
		fmt.Fprintln(stdout)
		if err := recorder.WriteTable(stdout); err != nil {
			return err
		}
	}

	if failed > 0 {
		return errors.Errorf("%d checks failed", failed)
	}
	return nil
}

// reportResult prints one line per request and one per failed check, and
// returns the number of failed checks.
func reportResult(w io.Writer, colors *output.ColorScheme, result runner.Result, numbered bool, iteration int) int {
	label := result.Name
	if numbered {
		label = fmt.Sprintf("#%d %s", iteration, result.Name)
	}

	if result.Passed() {
		fmt.Fprintf(w, "%s %s (%d, %s)\n", colors.SuccessIcon(), label,
			result.Response.StatusCode, result.Duration.Round(time.Millisecond))
		return 0
	}

	fmt.Fprintf(w, "%s %s (%d, %s)\n", colors.ErrorIcon(), label,
		result.Response.StatusCode, result.Duration.Round(time.Millisecond))
	for _, failure := range result.Failures {
		fmt.Fprintf(w, "    %s\n", failure)
	}
	return len(result.Failures)
}

// lockedWriter serializes writes from concurrent iterations.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
