package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/catalogqa/internal/app"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
)

func newFilterCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filter <query>",
		Short: "Show the metadata filter synthesized for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(true)
			if err != nil {
				return err
			}
			logger, err := opts.newLogger(cfg)
			if err != nil {
				return err
			}
			synth, err := app.NewSynthesizer(cfg, logger)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			f := synth.Synthesize(strings.Join(args, " "))
			if f == nil {
				printWarn(w, "no filter: the query searches the whole catalog")
				return nil
			}
			data, err := filter.Encode(f)
			if err != nil {
				return err
			}
			printHeader(w, "Filter")
			printField(w, "fields", strings.Join(filter.Fields(f), ", "))
			printField(w, "filter", string(data))
			return nil
		},
	}
}
