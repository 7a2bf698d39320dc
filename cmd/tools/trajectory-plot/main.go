// Command trajectory-plot renders a recorded threat's measured
// sightings and filtered estimates as a PNG, either in plan view (X/Z)
// or profile view (X/Y).
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/skyshield/internal/defense/store"
)

func main() {
	var (
		dbPath   = flag.String("db", "", "Path to a recorded run database (required)")
		threatID = flag.String("threat", "", "Threat id to plot (default: first recorded threat)")
		outPath  = flag.String("out", "trajectory.png", "Output PNG file")
		profile  = flag.Bool("profile", false, "Plot altitude profile (X/Y) instead of plan view (X/Z)")
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

	if *threatID == "" {
		threats, err := s.ListThreats()
		if err != nil {
			log.Fatalf("Failed to list threats: %v", err)
		}
		if len(threats) == 0 {
			log.Fatal("database contains no recorded observations")
		}
		*threatID = threats[0]
	}

	observations, err := s.GetTrackObservations(*threatID, 0)
	if err != nil {
		log.Fatalf("Failed to load observations: %v", err)
	}
	if len(observations) == 0 {
		log.Fatalf("no observations recorded for threat %q", *threatID)
	}

	measured := make(plotter.XYs, len(observations))
	estimated := make(plotter.XYs, len(observations))
	for i, obs := range observations {
		if *profile {
			measured[i] = plotter.XY{X: obs.Measured.X, Y: obs.Measured.Y}
			estimated[i] = plotter.XY{X: obs.Position.X, Y: obs.Position.Y}
		} else {
			measured[i] = plotter.XY{X: obs.Measured.X, Y: obs.Measured.Z}
			estimated[i] = plotter.XY{X: obs.Position.X, Y: obs.Position.Z}
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Threat %s (%s)", *threatID, observations[0].Category)
	p.X.Label.Text = "X (m)"
	if *profile {
		p.Y.Label.Text = "Y (m)"
	} else {
		p.Y.Label.Text = "Z (m)"
	}

	scatter, err := plotter.NewScatter(measured)
	if err != nil {
		log.Fatalf("Failed to build scatter: %v", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = color.RGBA{R: 160, G: 160, B: 160, A: 255}

	line, err := plotter.NewLine(estimated)
	if err != nil {
		log.Fatalf("Failed to build line: %v", err)
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = color.RGBA{R: 200, G: 40, B: 40, A: 255}

	p.Add(scatter, line)
	p.Legend.Add("measured", scatter)
	p.Legend.Add("estimate", line)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 7*vg.Inch, *outPath); err != nil {
		log.Fatalf("Failed to save plot: %v", err)
	}
	fmt.Printf("Plot written to %s (%d observations)\n", *outPath, len(observations))
}
