package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/catalogqa/internal/app"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/metrics"
)

type askOptions struct {
	topK     int
	minScore float64
	filter   string
	noStream bool
	asJSON   bool
	timeout  time.Duration
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, root, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "number of passages to use (default from config)")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "minimum similarity score (default from config)")
	cmd.Flags().StringVarP(&opts.filter, "filter", "f", "", `metadata filter override as JSON, e.g. '{"category":"pricing"}'`)
	cmd.Flags().BoolVar(&opts.noStream, "no-stream", false, "print the answer only when complete")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall timeout")
	return cmd
}

func runAsk(cmd *cobra.Command, root *rootOptions, opts *askOptions, question string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	cfg, err := root.loadConfig(false)
	if err != nil {
		return err
	}
	logger, err := root.newLogger(cfg)
	if err != nil {
		return err
	}
	metrics.RegisterPipelineMetrics()
	metrics.RegisterProviderMetrics()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	qopts := a.Defaults()
	if opts.topK > 0 {
		qopts.TopK = opts.topK
	}
	if cmd.Flags().Changed("min-score") {
		qopts.MinScore = &opts.minScore
	}
	if opts.filter != "" {
		f, err := filter.Decode([]byte(opts.filter))
		if err != nil {
			return err
		}
		qopts.Filter = f
	}

	w := cmd.OutOrStdout()
	streamed := false
	if !opts.noStream && !opts.asJSON {
		qopts.OnToken = func(token string) {
			streamed = true
			fmt.Fprint(w, token)
		}
	}

	res, err := a.Resolver.ResolveQuery(ctx, question, qopts)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if streamed {
		fmt.Fprintln(w)
		fmt.Fprintln(w)
	}
	printHeader(w, "Answer")
	fmt.Fprintln(w, res.Answer.Text)
	fmt.Fprintln(w)

	ans := res.Answer
	printField(w, "type", res.Classification.Type)
	printField(w, "confidence", fmt.Sprintf("%.2f", ans.Confidence))
	if ans.Cached {
		printField(w, "cached", true)
	}
	if ans.FallbackUsed {
		printWarn(w, "  filter matched nothing; answered from the unfiltered catalog")
	}
	if ans.Extractive {
		printWarn(w, "  completion unavailable; answer quoted from the top passage")
	}
	if ans.NoResults {
		printWarn(w, "  no catalog passages matched")
		return nil
	}
	for i, s := range ans.Sources {
		printField(w, fmt.Sprintf("source %d", i+1), fmt.Sprintf("%s (%.3f)", s.Source, s.Score))
	}
	return nil
}
