package main

import (
	"fmt"

	"github.com/corewald/tera/registry"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newLintCmd(logger *logrus.Logger, configPath *string) *cobra.Command {
	var glob string

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Parse and link a template set, reporting errors without rendering",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadFileConfig(*configPath)
			if err != nil {
				return err
			}
			glob = mergeString(glob, cfg.Glob)

			if _, err := registry.NewFromGlob(glob, registry.WithLogger(logrus.NewEntry(logger))); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}

	cmd.Flags().StringVar(&glob, "glob", "", "glob of template files to load, e.g. templates/**/*")
	return cmd
}
