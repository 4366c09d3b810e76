package templates

const PlotTemplate = `% Generated on {{.GeneratedDate}}
%
{{- if .RunID}}
% Run ID: {{.RunID}}
% Campaign: {{.Name}}
% Description: {{.Description}}
% Checksum: {{.Checksum}}
% Started: {{.Started}}
% Finished: {{.Finished}}
% Systems: {{.Systems}}
% Host: {{.Hostname}} ({{.CPUModel}})
%
{{- end}}
\begin{tikzpicture}
	\begin{axis}[
		% title={ {{.Title}} },
		xlabel={ {{.XLabel}} },
		ylabel={ {{.YLabel}} },
		width=\textwidth,
		height=0.6\textwidth,
		xmin={{.XMin}}, xmax={{.XMax}},
		ymin=0, ymax=1,
		ymajorgrids,
		grid style=dashed,
		legend columns=2,
		legend pos=south west,
	]

{{range .Plots}}
% Series: {{.LegendEntry}} ({{.Points}} points)
\addplot+[{{.Style}}]
  coordinates {
{{range .Coordinates}}    {{.}}
{{end}}  };
\addlegendentry{ {{.LegendEntry}} }

{{end}}
	\end{axis}
\end{tikzpicture}
`

type PlotData struct {
	GeneratedDate string
	RunID         string
	Name          string
	Description   string
	Checksum      string
	Started       string
	Finished      string
	Systems       int64
	Hostname      string
	CPUModel      string
	Title         string
	XLabel        string
	YLabel        string
	XMin          string
	XMax          string
	Plots         []PlotSeries
}

type PlotSeries struct {
	Style       string
	LegendEntry string
	Points      int
	Coordinates []string
}
