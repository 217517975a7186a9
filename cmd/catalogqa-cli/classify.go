package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/catalogqa/internal/app"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
)

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <query>",
		Short: "Show how a query would be classified",
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
			classifier, err := app.NewClassifier(cfg, logger)
			if err != nil {
				return err
			}

			c := classifier.Classify(strings.Join(args, " "))
			w := cmd.OutOrStdout()
			printHeader(w, "Classification")
			printField(w, "type", c.Type)
			printField(w, "confidence", fmt.Sprintf("%.2f", c.Confidence))
			printField(w, "rule", c.Rule)
			printField(w, "reason", c.Reason)
			if c.RouteName != "" {
				printField(w, "route", c.RouteName)
			}
			if c.Route != nil {
				data, err := filter.Encode(c.Route)
				if err != nil {
					return err
				}
				printField(w, "route filter", string(data))
			}
			printField(w, "use rag", classify.ShouldUseRAG(c))
			return nil
		},
	}
}
