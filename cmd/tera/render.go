package main

import (
	"os"

	"github.com/corewald/tera/exec"
	"github.com/corewald/tera/registry"
	"github.com/corewald/tera/value"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRenderCmd(logger *logrus.Logger, configPath *string) *cobra.Command {
	var glob, template, contextPath, output string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a template from a glob-loaded set against a JSON context",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadFileConfig(*configPath)
			if err != nil {
				return err
			}
			glob = mergeString(glob, cfg.Glob)
			template = mergeString(template, cfg.Template)
			contextPath = mergeString(contextPath, cfg.Context)
			output = mergeString(output, cfg.Output)

			limits := cfg.Limits.applyLimits(exec.DefaultLimits())
			opts := []registry.Option{registry.WithLimits(limits), registry.WithLogger(logrus.NewEntry(logger))}
			if len(cfg.AutoescapeExtensions) > 0 {
				opts = append(opts, registry.WithAutoescapeExtensions(cfg.AutoescapeExtensions))
			}

			tera, err := registry.NewFromGlob(glob, opts...)
			if err != nil {
				return err
			}

			ctx, err := loadContext(contextPath)
			if err != nil {
				return err
			}

			out, err := tera.Render(template, ctx)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write([]byte(out))
				return err
			}
			return os.WriteFile(output, []byte(out), 0o644)
		},
	}

	cmd.Flags().StringVar(&glob, "glob", "", "glob of template files to load, e.g. templates/**/*")
	cmd.Flags().StringVar(&template, "template", "", "name of the template to render, relative to the glob's base directory")
	cmd.Flags().StringVar(&contextPath, "context", "", "path to a JSON file with the render context (omit for an empty context)")
	cmd.Flags().StringVar(&output, "output", "", "write rendered output here instead of stdout")
	return cmd
}

func loadContext(path string) (*exec.Context, error) {
	if path == "" {
		return exec.NewContext(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := value.FromJSON(data)
	if err != nil {
		return nil, err
	}
	obj, _ := v.AsObject()
	return exec.ContextFromObject(obj), nil
}
