package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Carmen-Shannon/oxy-matcore/engine/matdef"
	"github.com/Carmen-Shannon/oxy-matcore/engine/profiler"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/driver/drivertest"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-matcore/engine/renderer/uniform"
	"github.com/spf13/cobra"
)

// profileOptions configures a simulated run.
type profileOptions struct {
	instances int
	frames    int
	fps       int
	animated  int
}

func newProfileCommand() *cobra.Command {
	var opts profileOptions

	cmd := &cobra.Command{
		Use:   "profile <file>",
		Short: "Simulate frames of material instances against an in-memory driver and report upload traffic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.instances < 1 || opts.frames < 1 || opts.fps < 1 {
				return fmt.Errorf("--instances, --frames and --fps must be positive")
			}
			return runProfile(cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.instances, "instances", 100, "number of material instances")
	cmd.Flags().IntVar(&opts.frames, "frames", 120, "number of simulated frames")
	cmd.Flags().IntVar(&opts.fps, "fps", 60, "simulated frame rate; one report is printed per simulated second")
	cmd.Flags().IntVar(&opts.animated, "animated", -1, "instances whose parameters change every frame; negative means all")
	return cmd
}

// runProfile commits every instance once per frame, animating the first float parameter of the
// material on the first opts.animated instances. Untouched instances commit nothing after frame one.
func runProfile(out io.Writer, path string, opts profileOptions) error {
	rec := drivertest.NewRecorder()
	loaded, err := matdef.LoadMaterial(rec, path)
	if err != nil {
		return err
	}

	frameTime := time.Second / time.Duration(opts.fps)
	clock := time.Unix(0, 0)
	prof := profiler.NewProfiler(profiler.WithClock(func() time.Time { return clock }))
	drv := prof.Driver(rec)

	m := loaded.Material
	instances := make([]material.MaterialInstance, opts.instances)
	for i := range instances {
		instances[i] = m.CreateInstance(fmt.Sprintf("%s#%d", m.Name(), i))
	}
	param := animatedParameter(m.UniformBlock())
	animated := opts.animated
	if animated < 0 || animated > len(instances) {
		animated = len(instances)
	}

	fmt.Fprintf(out, "material %s: %d instances, %d animated", m.Name(), len(instances), animated)
	if param == "" {
		fmt.Fprint(out, " (no float parameter to animate)")
		animated = 0
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECOND\tFRAMES\tUPLOADS\tBYTES\tSAMPLER UPDATES\tBINDS\tCREATES")
	second := 0
	for frame := 0; frame < opts.frames; frame++ {
		clock = clock.Add(frameTime)
		if err := drawFrame(drv, instances[:animated], instances, param, float32(frame)); err != nil {
			return err
		}
		if prof.Tick() {
			second++
			writeStats(tw, second, prof.Last())
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, mi := range instances {
		mi.Terminate(drv)
	}
	loaded.Destroy(drv)
	if live := rec.Live(); live != 0 {
		return fmt.Errorf("%d driver resources leaked", live)
	}
	return nil
}

// drawFrame updates the animated instances, then commits and binds every instance.
func drawFrame(drv driver.Driver, animated, all []material.MaterialInstance, param string, v float32) error {
	for _, mi := range animated {
		if err := mi.SetParameterFloat(param, v); err != nil {
			return err
		}
	}
	for _, mi := range all {
		if err := mi.Commit(drv); err != nil {
			return fmt.Errorf("commit %s: %w", mi.Name(), err)
		}
		mi.Use(drv)
	}
	return nil
}

// animatedParameter returns the first user float parameter of a block, or "" if there is none.
func animatedParameter(ub uniform.InterfaceBlock) string {
	for _, info := range ub.Infos() {
		if info.Type == uniform.Float && info.ArrayLength <= 1 && !strings.HasPrefix(info.Name, "_") {
			return info.Name
		}
	}
	return ""
}

func writeStats(w io.Writer, second int, s profiler.Stats) {
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
		second, s.Frames, s.Uploads, s.UploadedBytes, s.SamplerUpdates, s.Binds, s.Creates)
}
