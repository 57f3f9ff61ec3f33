package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/Carmen-Shannon/oxy-matcore/common"
	"github.com/Carmen-Shannon/oxy-matcore/engine/binding"
	"github.com/Carmen-Shannon/oxy-matcore/engine/matdef"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/shader"
	"github.com/spf13/cobra"
)

// newRootCommand assembles the matlayout command tree.
func newRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "matlayout",
		Short:         "Inspect the GPU layout of material definition files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return configureLogging(cmd.ErrOrStderr(), logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level written to stderr (debug, info, warn, error); empty disables logging")

	root.AddCommand(newLayoutCommand(), newWGSLCommand(), newCheckCommand(), newProfileCommand())
	return root
}

// configureLogging installs a text logger at level, or keeps the engine silent for an empty level.
func configureLogging(w io.Writer, level string) error {
	if level == "" {
		common.SetLogger(nil)
		return nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	common.SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})))
	return nil
}

// resolveFile loads a definition and resolves the layout of the material it describes.
func resolveFile(path string) (*matdef.Definition, *material.Layout, error) {
	def, err := matdef.Load(path)
	if err != nil {
		return nil, nil, err
	}
	options, err := def.Options(filepath.Dir(path))
	if err != nil {
		return nil, nil, err
	}
	layout, err := material.ResolveLayout(options...)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, layout, nil
}

func newLayoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layout <file>",
		Short: "Print the uniform and sampler layout of a material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, layout, err := resolveFile(args[0])
			if err != nil {
				return err
			}
			return writeLayout(cmd.OutOrStdout(), def.Name, layout)
		},
	}
}

// writeLayout prints one row per uniform field and one per sampler. Offsets and strides are bytes.
func writeLayout(out io.Writer, name string, layout *material.Layout) error {
	ub := layout.UniformBlock
	fmt.Fprintf(out, "material %s: %d bytes of uniforms at @group(%d) @binding(%d)\n",
		name, ub.Size(), driver.UniformGroup, binding.PerMaterialInstance)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE\tOFFSET\tSTRIDE\tWIDTH\tARRAY")
	for _, info := range ub.Infos() {
		typ := info.Type.String()
		if info.StructName != "" {
			typ += " " + info.StructName
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
			info.Name, typ, info.Offset*4, info.Stride*4, info.Width*4, info.ArrayLength)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sb := layout.SamplerBlock
	if sb.IsEmpty() {
		return nil
	}
	group := driver.SamplerGroupIndex(uint8(binding.SamplerPerMaterialInstance))
	fmt.Fprintf(out, "\n%d samplers at @group(%d)\n", sb.Size(), group)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SAMPLER\tTYPE\tFORMAT\tTEXTURE\tSAMPLER BINDING")
	for _, info := range sb.Infos() {
		tex, samp := driver.SamplerBindings(info.Offset)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", info.Name, info.Type, info.Format, tex, samp)
	}
	return tw.Flush()
}

func newWGSLCommand() *cobra.Command {
	var variable string

	cmd := &cobra.Command{
		Use:   "wgsl <file>",
		Short: "Print the WGSL declarations matching a material's layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, layout, err := resolveFile(args[0])
			if err != nil {
				return err
			}
			src := ""
			if !layout.UniformBlock.IsEmpty() {
				src += "//@oxy:params " + variable + "\n"
			}
			if !layout.SamplerBlock.IsEmpty() {
				src += "//@oxy:samplers\n"
			}
			pp := shader.NewPreProcessor(
				shader.WithUniformBlock(layout.UniformBlock, binding.PerMaterialInstance),
				shader.WithSamplerBlock(layout.SamplerBlock, binding.SamplerPerMaterialInstance),
			)
			out, err := pp.Process(src)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&variable, "var", "material", "name of the uniform variable")
	return cmd
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Expand and validate the shaders of material definitions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				_, layout, err := resolveFile(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %v\n", err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%s)\n", path, layout.Program.Stages())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d definitions failed", failed, len(args))
			}
			return nil
		},
	}
}

func run() int {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "matlayout:", err)
		return 1
	}
	return 0
}
