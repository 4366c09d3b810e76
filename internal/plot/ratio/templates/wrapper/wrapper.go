package templates

const WrapperTemplate = `% Generated on {{.GeneratedDate}}
% Source: {{.Source}}
\begin{center}
    \begin{figure}[H]
    \centering
    \resizebox{1\linewidth}{!}{\input{./{{.PlotFileName}} }}
    \caption[{{.ShortCaption}}]{ {{.Caption}} }
    \label{fig:schedulability-{{.Label}}}
    \end{figure}
\end{center}
`

type WrapperData struct {
	GeneratedDate string
	Source        string
	Label         string
	PlotFileName  string
	ShortCaption  string
	Caption       string
}
