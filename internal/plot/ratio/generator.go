package ratio

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strings"
	"text/template"
	"time"

	"prem-rta/internal/plot/database"
	"prem-rta/internal/plot/ratio/mappings"
	plotTemplate "prem-rta/internal/plot/ratio/templates/plot"
	wrapperTemplate "prem-rta/internal/plot/ratio/templates/wrapper"

	"github.com/sirupsen/logrus"
)

type RatioPlotGenerator struct {
	logger *logrus.Logger
}

func NewRatioPlotGenerator(logger *logrus.Logger) *RatioPlotGenerator {
	return &RatioPlotGenerator{logger: logger}
}

type PlotOptions struct {
	// Name identifies the figure; it becomes the LaTeX label and the
	// suggested .tikz file name.
	Name   string
	Source string
	Run    *database.RunInfo
	Series []database.RatioSeries
}

var labelSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// FileName is the .tikz file the wrapper inputs.
func (o PlotOptions) FileName() string {
	return "schedulability-" + o.label() + ".tikz"
}

func (o PlotOptions) label() string {
	name := strings.Trim(labelSanitizer.ReplaceAllString(strings.ToLower(o.Name), "-"), "-")
	if name == "" {
		return "ratio"
	}
	return name
}

// Generate renders the plot and its figure wrapper.
func (g *RatioPlotGenerator) Generate(opts PlotOptions) (string, string, error) {
	g.logger.WithFields(logrus.Fields{
		"name":   opts.Name,
		"source": opts.Source,
		"series": len(opts.Series),
	}).Info("Generating schedulability plot")

	if len(opts.Series) == 0 {
		return "", "", fmt.Errorf("no data to plot")
	}

	plotData := g.preparePlotData(opts)
	if len(plotData.Plots) == 0 {
		return "", "", fmt.Errorf("no data points in %d series", len(opts.Series))
	}

	plotOutput, err := g.renderPlot(plotData)
	if err != nil {
		return "", "", fmt.Errorf("failed to render plot: %w", err)
	}

	wrapperOutput, err := g.renderWrapper(g.prepareWrapperData(opts))
	if err != nil {
		return "", "", fmt.Errorf("failed to render wrapper: %w", err)
	}

	g.logger.Info("Schedulability plot generated successfully")
	return plotOutput, wrapperOutput, nil
}

func (g *RatioPlotGenerator) preparePlotData(opts PlotOptions) *plotTemplate.PlotData {
	xMin := math.Inf(1)
	xMax := math.Inf(-1)

	var plots []plotTemplate.PlotSeries
	for i, s := range opts.Series {
		series := plotTemplate.PlotSeries{
			Style:       mappings.GetSeriesStyle(i).ToTikzOptions(),
			LegendEntry: s.Label,
		}
		for _, p := range s.Points {
			series.Coordinates = append(series.Coordinates, fmt.Sprintf("(%.4f,%.6f)", p.Utilisation, p.Ratio))
			xMin = math.Min(xMin, p.Utilisation)
			xMax = math.Max(xMax, p.Utilisation)
		}
		series.Points = len(series.Coordinates)
		if series.Points > 0 {
			plots = append(plots, series)
		}
	}

	data := &plotTemplate.PlotData{
		GeneratedDate: time.Now().Format("2006-01-02 15:04:05"),
		Title:         "Schedulability ratio",
		XLabel:        "Utilisation per processor",
		YLabel:        "Schedulable systems",
		XMin:          "0",
		XMax:          "1",
		Plots:         plots,
	}
	if len(plots) > 0 {
		data.XMin = fmt.Sprintf("%.2f", math.Max(0, xMin-0.05))
		data.XMax = fmt.Sprintf("%.2f", math.Min(1, xMax+0.05))
	}

	if run := opts.Run; run != nil {
		data.RunID = run.RunID
		data.Name = run.Name
		data.Description = run.Description
		data.Checksum = run.Checksum
		data.Started = run.Started
		data.Finished = run.Finished
		data.Systems = run.Systems
		data.Hostname = run.Hostname
		data.CPUModel = run.CPUModel
	}
	return data
}

func (g *RatioPlotGenerator) prepareWrapperData(opts PlotOptions) *wrapperTemplate.WrapperData {
	var names []string
	for _, s := range opts.Series {
		names = append(names, s.Label)
	}
	return &wrapperTemplate.WrapperData{
		GeneratedDate: time.Now().Format("2006-01-02 15:04:05"),
		Source:        opts.Source,
		Label:         opts.label(),
		PlotFileName:  opts.FileName(),
		ShortCaption:  "Schedulability ratio",
		Caption:       fmt.Sprintf("Share of schedulable systems per utilisation for %s", strings.Join(names, ", ")),
	}
}

func (g *RatioPlotGenerator) renderPlot(data *plotTemplate.PlotData) (string, error) {
	tmpl, err := template.New("plot").Parse(plotTemplate.PlotTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse plot template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute plot template: %w", err)
	}

	return buf.String(), nil
}

func (g *RatioPlotGenerator) renderWrapper(data *wrapperTemplate.WrapperData) (string, error) {
	tmpl, err := template.New("wrapper").Parse(wrapperTemplate.WrapperTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse wrapper template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute wrapper template: %w", err)
	}

	return buf.String(), nil
}
