package helm

import (
	"path/filepath"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chartutil"
)

// ChartFile is the name of the chart descriptor inside a chart directory.
const ChartFile = chartutil.ChartfileName

// LoadChartfile reads the Chart.yaml of the chart directory.
func LoadChartfile(dir string) (*chart.Metadata, error) {
	return chartutil.LoadChartfile(filepath.Join(dir, ChartFile))
}
