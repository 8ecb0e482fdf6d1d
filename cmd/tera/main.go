// Command tera renders templates from a glob against a JSON context
// file, or lints a template set for link-time errors (missing parents,
// circular extends, missing imports) without rendering anything.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	logger := logrus.New()

	root := &cobra.Command{
		Use:   "tera",
		Short: "Render and lint tera templates",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (flags override its values)")

	root.AddCommand(newRenderCmd(logger, &configPath))
	root.AddCommand(newLintCmd(logger, &configPath))
	return root
}
