// Command engagement-report renders a recorded engagement run as a
// standalone HTML page: plan-view trajectories of measured sightings
// against filtered estimates, track quality over time, and detonation
// outcomes per threat.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/skyshield/internal/defense/store"
)

func main() {
	var (
		dbPath  = flag.String("db", "", "Path to a recorded run database (required)")
		outPath = flag.String("out", "engagement-report.html", "Output HTML file")
	)
	flag.Parse()

	if *dbPath == "" {
		flag.Usage()
		log.Fatal("missing required -db flag")
	}

	s, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	threats, err := s.ListThreats()
	if err != nil {
		log.Fatalf("Failed to list threats: %v", err)
	}
	if len(threats) == 0 {
		log.Fatal("database contains no recorded observations")
	}

	page := components.NewPage()
	page.PageTitle = "Engagement Report"

	trajectories, err := trajectoryChart(s, threats)
	if err != nil {
		log.Fatalf("Failed to build trajectory chart: %v", err)
	}
	quality, err := qualityChart(s, threats)
	if err != nil {
		log.Fatalf("Failed to build quality chart: %v", err)
	}
	page.AddCharts(trajectories, quality)

	outcomes, err := detonationChart(s)
	if err != nil {
		log.Fatalf("Failed to build detonation chart: %v", err)
	}
	if outcomes != nil {
		page.AddCharts(outcomes)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	fmt.Printf("Report written to %s (%d threats)\n", *outPath, len(threats))
}

// trajectoryChart is a plan-view (X/Z) scatter of raw sightings plus
// the filter's estimated path for every threat.
func trajectoryChart(s *store.Store, threats []string) (*charts.Scatter, error) {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Plan View", Subtitle: "measured sightings vs filtered estimates"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Z (m)", NameLocation: "middle", NameGap: 30}),
	)

	for _, threatID := range threats {
		observations, err := s.GetTrackObservations(threatID, 0)
		if err != nil {
			return nil, err
		}

		measured := make([]opts.ScatterData, 0, len(observations))
		estimated := make([]opts.ScatterData, 0, len(observations))
		for _, obs := range observations {
			measured = append(measured, opts.ScatterData{Value: []interface{}{obs.Measured.X, obs.Measured.Z}})
			estimated = append(estimated, opts.ScatterData{Value: []interface{}{obs.Position.X, obs.Position.Z}})
		}
		scatter.AddSeries(threatID+" measured", measured,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
		scatter.AddSeries(threatID+" estimate", estimated,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))
	}
	return scatter, nil
}

// qualityChart plots each threat's track quality against simulation
// time.
func qualityChart(s *store.Store, threats []string) (*charts.Line, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Track Quality"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "quality", Min: 0, Max: 1}),
	)

	// A shared x-axis from the first threat's timestamps keeps the
	// chart simple; all threats are sampled on the same tick clock.
	var axis []string
	for _, threatID := range threats {
		observations, err := s.GetTrackObservations(threatID, 0)
		if err != nil {
			return nil, err
		}
		if len(observations) == 0 {
			continue
		}

		values := make([]opts.LineData, 0, len(observations))
		labels := make([]string, 0, len(observations))
		for _, obs := range observations {
			labels = append(labels, fmt.Sprintf("%.1f", float64(obs.TSUnixNanos)/1e9))
			values = append(values, opts.LineData{Value: obs.Quality})
		}
		if len(labels) > len(axis) {
			axis = labels
		}
		line.AddSeries(threatID, values)
	}
	line.SetXAxis(axis)
	return line, nil
}

// detonationChart summarizes detonation outcomes per threat, or nil
// when the run recorded none.
func detonationChart(s *store.Store) (*charts.Bar, error) {
	detonations, err := s.GetDetonations()
	if err != nil {
		return nil, err
	}
	if len(detonations) == 0 {
		return nil, nil
	}

	labels := make([]string, 0, len(detonations))
	distances := make([]opts.BarData, 0, len(detonations))
	killProbs := make([]opts.BarData, 0, len(detonations))
	for _, det := range detonations {
		label := det.ThreatID
		if det.Killed {
			label += " (kill)"
		}
		labels = append(labels, label)
		distances = append(distances, opts.BarData{Value: det.Distance})
		killProbs = append(killProbs, opts.BarData{Value: det.KillProbability})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Detonations", Subtitle: fmt.Sprintf("%d events", len(detonations))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("miss distance (m)", distances).
		AddSeries("kill probability", killProbs)
	return bar, nil
}
