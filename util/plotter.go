package util

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"venues-server/models/stats"
)

// RenderCategoryChart writes an HTML page with a bar chart of venues per
// category and, as a second series, the average rating per category.
func RenderCategoryChart(w io.Writer, dashboard *stats.Dashboard) error {
	categories := make([]string, 0, len(dashboard.Stats))
	counts := make([]opts.BarData, 0, len(dashboard.Stats))
	ratings := make([]opts.BarData, 0, len(dashboard.Stats))

	for _, s := range dashboard.Stats {
		categories = append(categories, s.Category)
		counts = append(counts, opts.BarData{Name: s.Category, Value: s.Count})
		// "-" is rendered as a gap
		var rating interface{} = "-"
		if s.AvgRating != nil {
			rating = *s.AvgRating
		}
		ratings = append(ratings, opts.BarData{Name: s.Category, Value: rating})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Venues by category",
			Width:     "900px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Venues by category",
			Subtitle: fmt.Sprintf("%d venues, %d added recently, generated %s",
				dashboard.TotalVenues, dashboard.RecentVenues,
				dashboard.GeneratedAt.Format("2006-01-02 15:04 MST")),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
	)

	bar.SetXAxis(categories).
		AddSeries("Venues", counts,
			charts.WithLabelOpts(opts.Label{
				Show:     opts.Bool(true),
				Position: "top",
			}),
		).
		AddSeries("Average rating", ratings)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render category chart: %w", err)
	}
	return nil
}
