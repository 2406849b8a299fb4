package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/flightlab/internal/analysis"
	"github.com/san-kum/flightlab/internal/export"
	"github.com/san-kum/flightlab/internal/gates"
	"github.com/san-kum/flightlab/internal/telemetry"
)

var (
	outFile     string
	plotWidth   int
	plotHeight  int
	traceWidth  int
	traceHeight int
	spectrum    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list stored runs",
	RunE:  listRuns,
}

var showCmd = &cobra.Command{
	Use:   "show [run_id]",
	Short: "show the standings of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

var plotCmd = &cobra.Command{
	Use:   "plot [run_id] [agent] [column...]",
	Short: "plot telemetry columns of one agent",
	Long:  "Plot telemetry columns of one agent. Without columns, altitude is plotted.",
	Args:  cobra.MinimumNArgs(2),
	RunE:  plotRun,
}

var exportCSVCmd = &cobra.Command{
	Use:   "export-csv [run_id] [agent]",
	Short: "export one agent's telemetry as csv",
	Args:  cobra.ExactArgs(2),
	RunE:  exportCSV,
}

var exportJSONCmd = &cobra.Command{
	Use:   "export-json [run_id]",
	Short: "export a whole run as json",
	Args:  cobra.ExactArgs(1),
	RunE:  exportJSON,
}

var traceCmd = &cobra.Command{
	Use:   "trace [run_id]",
	Short: "draw the course and flown tracks as svg",
	Args:  cobra.ExactArgs(1),
	RunE:  traceRun,
}

func init() {
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")
	plotCmd.Flags().BoolVar(&spectrum, "spectrum", false, "plot the power spectrum of scalar columns")
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	traceCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default <run_id>.svg)")
	traceCmd.Flags().IntVar(&traceWidth, "width", 1000, "image width")
	traceCmd.Flags().IntVar(&traceHeight, "height", 750, "image height")
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := store().List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tTIME\tSEED\tTICKS\tAGENTS\tFINISHED\tFAILED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			run.ID,
			run.Label,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Seed,
			run.Ticks,
			len(run.Agents),
			run.Finished,
			run.Failed,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := store()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	res, err := st.LoadResults(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run:        %s\n", meta.ID)
	fmt.Printf("label:      %s\n", meta.Label)
	fmt.Printf("recorded:   %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("seed:       %d\n", meta.Seed)
	fmt.Printf("dt:         %.4fs (%s)\n", meta.Dt, meta.Integrator)
	fmt.Printf("ticks:      %d (%.2fs)\n", res.Ticks, res.Time)
	fmt.Println(standingsTable(res))

	for _, a := range res.Standings() {
		if a.Reason != "" {
			fmt.Printf("%s: %s at %s: %s\n", a.Name, a.Failure, a.Stage, a.Reason)
		}
	}
	for _, a := range res.Rejections {
		fmt.Printf("%s: rejected at %s: %s\n", a.Name, a.Stage, a.Reason)
	}
	return nil
}

func agentLog(runID, agent string) (*telemetry.Archive, *telemetry.Log, error) {
	archive, err := store().LoadTelemetry(runID)
	if err != nil {
		return nil, nil, err
	}
	l, ok := archive.Log(agent)
	if !ok {
		return nil, nil, fmt.Errorf("no telemetry for agent %s in run %s", agent, runID)
	}
	return archive, l, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	archive, l, err := agentLog(args[0], args[1])
	if err != nil {
		return err
	}
	if l.Len() == 0 {
		fmt.Println("no telemetry recorded")
		return nil
	}

	columns := args[2:]
	if len(columns) == 0 {
		columns = []string{"p_z"}
	}

	for _, name := range columns {
		c := l.Column(name)
		if c == nil {
			return fmt.Errorf("%w: %s", telemetry.ErrUnknown, name)
		}
		series := make([][]float64, c.Width)
		for i := 0; i < c.Rows(); i++ {
			for j, v := range c.Row(i) {
				series[j] = append(series[j], v)
			}
		}

		caption := fmt.Sprintf("%s / %s", args[1], name)
		var graph string
		if spectrum && c.Width == 1 {
			ps := analysis.PowerSpectrum(series[0])
			if len(ps) < 2 {
				continue
			}
			graph = asciigraph.Plot(ps[1:],
				asciigraph.Height(plotHeight),
				asciigraph.Width(plotWidth),
				asciigraph.Caption(fmt.Sprintf("%s spectrum, peak %.3f Hz",
					caption, analysis.DominantFrequency(series[0], archive.Dt))),
			)
		} else if c.Width == 1 {
			graph = asciigraph.Plot(series[0],
				asciigraph.Height(plotHeight),
				asciigraph.Width(plotWidth),
				asciigraph.Caption(caption),
			)
		} else {
			graph = asciigraph.PlotMany(series,
				asciigraph.Height(plotHeight),
				asciigraph.Width(plotWidth),
				asciigraph.Caption(caption),
				asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green, asciigraph.Blue, asciigraph.Yellow),
			)
		}
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func output(defaultPath string) (io.WriteCloser, error) {
	path := outFile
	if path == "" {
		path = defaultPath
	}
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCSV(cmd *cobra.Command, args []string) error {
	w, err := output("")
	if err != nil {
		return err
	}
	defer w.Close()
	return store().ExportCSV(args[0], args[1], w)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, err := output("")
	if err != nil {
		return err
	}
	defer w.Close()
	return store().ExportJSON(args[0], w)
}

func traceRun(cmd *cobra.Command, args []string) error {
	st := store()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	res, err := st.LoadResults(args[0])
	if err != nil {
		return err
	}
	archive, err := st.LoadTelemetry(args[0])
	if err != nil {
		return err
	}
	course, err := gates.CourseFromSpec(meta.Course)
	if err != nil {
		return err
	}

	var tracks []export.Track
	for _, a := range res.Agents {
		if l, ok := archive.Log(a.Name); ok {
			tracks = append(tracks, export.TrackFromLog(a.Name, a.Color, l))
		}
	}

	w, err := output(args[0] + ".svg")
	if err != nil {
		return err
	}
	defer w.Close()
	if _, err := io.WriteString(w, export.TraceSVG(course, tracks, traceWidth, traceHeight)); err != nil {
		return err
	}
	if outFile != "-" {
		fmt.Fprintf(os.Stderr, "wrote %d tracks\n", len(tracks))
	}
	return nil
}
