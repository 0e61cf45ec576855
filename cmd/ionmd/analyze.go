package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/san-kum/ionmd/internal/analysis"
	"github.com/san-kum/ionmd/internal/export"
	"github.com/san-kum/ionmd/internal/trajectory"
	"github.com/spf13/cobra"
)

func readTrajectory(path string) (trajectory.Header, []float64, []trajectory.Frame, error) {
	rd, err := trajectory.Open(path)
	if err != nil {
		return trajectory.Header{}, nil, nil, err
	}
	defer rd.Close()

	times, frames, err := rd.ReadAll()
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Fprintf(os.Stderr, "warning: %s is truncated after %d records\n", path, len(frames))
		err = nil
	}
	return rd.Header(), times, frames, err
}

func inspectTrajectory(cmd *cobra.Command, args []string) error {
	h, times, frames, err := readTrajectory(args[0])
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(args[0]))
	fmt.Println(labelStyle.Render("version") + valueStyle.Render(fmt.Sprintf("%d", h.Version)))
	fmt.Println(labelStyle.Render("ions") + valueStyle.Render(fmt.Sprintf("%d", h.NumIons)))
	fmt.Println(labelStyle.Render("dt") + valueStyle.Render(fmt.Sprintf("%.3e s", h.Dt)))
	fmt.Println(labelStyle.Render("t_max") + valueStyle.Render(fmt.Sprintf("%.3e s", h.TMax)))
	fmt.Println(labelStyle.Render("records") + valueStyle.Render(fmt.Sprintf("%d / %d", len(frames), h.Steps())))

	if len(frames) == 0 {
		return nil
	}

	last := frames[len(frames)-1]
	fmt.Printf("\nlast record, t = %.6e s\n", times[len(times)-1])
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ION\tX (µm)\tY (µm)\tZ (µm)")
	for i, x := range last {
		fmt.Fprintf(w, "%d\t%+.4f\t%+.4f\t%+.4f\n", i, x.X*1e6, x.Y*1e6, x.Z*1e6)
	}
	return w.Flush()
}

func analyzeTrajectory(cmd *cobra.Command, args []string) error {
	axis, err := analysis.ParseAxis(axisName)
	if err != nil {
		return err
	}

	h, _, frames, err := readTrajectory(args[0])
	if err != nil {
		return err
	}
	if ionIndex < 0 || ionIndex >= int(h.NumIons) {
		return fmt.Errorf("ion %d out of range (file has %d)", ionIndex, h.NumIons)
	}

	data := analysis.Series(frames, ionIndex, axis)
	if len(data) < 4 {
		return fmt.Errorf("no data")
	}

	fmt.Printf("frequency analysis: ion %d, axis %s, %d samples\n\n", ionIndex, axis, len(data))

	fmt.Printf("resolution:         %.4f kHz\n", 1/(float64(len(data))*h.Dt)/1e3)
	freq := analysis.DominantFrequency(data, h.Dt)
	fmt.Printf("dominant frequency: %.4f kHz\n", freq/1e3)
	if period := analysis.ZeroCrossingPeriod(data, h.Dt); period > 0 {
		fmt.Printf("crossing period:    %.4e s (%.4f kHz)\n", period, 1/period/1e3)
	}

	if configFile == "" && preset == "" {
		return nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if ionIndex >= len(cfg.Ions) {
		return fmt.Errorf("config has no ion %d", ionIndex)
	}
	ion := cfg.Ions[ionIndex]
	wr, wz := cfg.Trap.SecularFrequencies(ion.Mass, ion.Charge)
	expected := wr
	if axis == analysis.AxisZ {
		expected = wz
	}
	expected /= 2 * math.Pi
	fmt.Printf("secular frequency:  %.4f kHz\n", expected/1e3)
	if expected > 0 {
		fmt.Printf("relative error:     %.2e\n", math.Abs(freq-expected)/expected)
	}
	return nil
}

func phaseSummary(cmd *cobra.Command, args []string) error {
	axis, err := analysis.ParseAxis(axisName)
	if err != nil {
		return err
	}

	h, _, frames, err := readTrajectory(args[0])
	if err != nil {
		return err
	}

	data := analysis.Series(frames, ionIndex, axis)
	portrait := analysis.GeneratePhasePortrait(data, h.Dt, axis)
	if len(portrait.Points) == 0 {
		return fmt.Errorf("no data")
	}

	x, v := portrait.Amplitudes()
	fmt.Printf("phase portrait: ion %d, %s vs d%s/dt, %d points\n", ionIndex, axis, axis, len(portrait.Points))
	fmt.Printf("amplitude:     %.4e m\n", x)
	fmt.Printf("peak velocity: %.4e m/s\n", v)
	if x > 0 {
		fmt.Printf("v/x:           %.4f kHz\n", v/x/(2*math.Pi)/1e3)
	}

	cross, a, b := analysis.AxisZ, analysis.AxisX, analysis.AxisY
	if axis == analysis.AxisZ {
		cross = analysis.AxisX
		a, b = analysis.AxisY, analysis.AxisZ
	}
	section := analysis.PoincareSection(frames, ionIndex, cross, a, b)
	fmt.Printf("poincaré section at %s = 0: %d crossings\n", cross, len(section))

	if phaseOut != "" {
		if err := export.WriteFile(phaseOut, axis.String(), "v"+axis.String(), portrait.Points); err != nil {
			return err
		}
	}
	return nil
}

func seriesCSV(cmd *cobra.Command, args []string) error {
	axis, err := analysis.ParseAxis(axisName)
	if err != nil {
		return err
	}
	_, times, frames, err := readTrajectory(args[0])
	if err != nil {
		return err
	}
	if ionIndex < 0 || (len(frames) > 0 && ionIndex >= len(frames[0])) {
		return fmt.Errorf("ion %d out of range", ionIndex)
	}

	data := analysis.Series(frames, ionIndex, axis)
	return export.WriteFile(csvOut, "t", axis.String(), export.TimeSeries(times, data))
}
