package portal

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/biosnap/internal/config"
	"github.com/nao1215/biosnap/internal/model"
)

// bucket holds the reports sharing one local date label.
type bucket struct {
	label string
	// day is midnight of the label's date in the reference timezone.
	day     time.Time
	reports []indexed
}

// indexed is a report with its position in the fetched snapshot.
type indexed struct {
	report model.RawReport
	pos    int
}

// DateLabel renders a UTC timestamp as its local date label in loc.
func DateLabel(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(config.DefaultDateLayout)
}

// buckets groups reports by local date label.
// Buckets are in ascending date order; each bucket lists its reports newest first,
// with the later fetch position winning a timestamp tie.
// Reports without a usable timestamp cannot be placed on a date and are left out.
func buckets(reports []model.RawReport, loc *time.Location) []bucket {
	byLabel := make(map[string]*bucket)
	for i, r := range reports {
		if r.CreatedAt.IsZero() {
			continue
		}
		label := DateLabel(r.CreatedAt, loc)
		b, ok := byLabel[label]
		if !ok {
			local := r.CreatedAt.In(loc)
			b = &bucket{
				label: label,
				day:   time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
			}
			byLabel[label] = b
		}
		b.reports = append(b.reports, indexed{report: r, pos: i})
	}

	out := make([]bucket, 0, len(byLabel))
	for _, b := range byLabel {
		slices.SortFunc(b.reports, func(x, y indexed) int {
			if c := y.report.CreatedAt.Compare(x.report.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(y.pos, x.pos)
		})
		out = append(out, *b)
	}
	slices.SortFunc(out, func(x, y bucket) int { return x.day.Compare(y.day) })
	return out
}

// Labels returns every local date label present in reports, oldest first.
func Labels(reports []model.RawReport, loc *time.Location) []string {
	bs := buckets(reports, loc)
	labels := make([]string, 0, len(bs))
	for _, b := range bs {
		labels = append(labels, b.label)
	}
	return labels
}

// Select picks one report from a fetched snapshot.
// With an empty date the newest report overall is returned. Otherwise the newest
// report whose local date label equals date is returned, or a *model.NotFoundError
// listing every available label.
//
// Select performs no I/O; the same snapshot always yields the same result.
func Select(reports []model.RawReport, date string, loc *time.Location) (model.RawReport, string, error) {
	date = strings.TrimSpace(date)
	bs := buckets(reports, loc)

	if len(bs) > 0 {
		if date == "" {
			latest := bs[len(bs)-1]
			return latest.reports[0].report, latest.label, nil
		}
		for _, b := range bs {
			if b.label == date {
				return b.reports[0].report, b.label, nil
			}
		}
	}

	requested := date
	if requested == "" {
		requested = "the latest date"
	}
	available := make([]string, 0, len(bs))
	for _, b := range bs {
		available = append(available, b.label)
	}
	return model.RawReport{}, "", &model.NotFoundError{Requested: requested, Available: available}
}

// AvailableTests lists the selectable reports newest first, labeled for display.
func AvailableTests(reports []model.RawReport, loc *time.Location, label string) []model.AvailableTest {
	bs := buckets(reports, loc)
	out := make([]model.AvailableTest, 0, len(reports))
	for i := len(bs) - 1; i >= 0; i-- {
		for _, ir := range bs[i].reports {
			out = append(out, model.AvailableTest{
				ID:        ir.report.ID,
				Label:     label,
				RawDate:   ir.report.RawCreatedAt,
				LocalDate: bs[i].label,
				CreatedAt: ir.report.CreatedAt,
			})
		}
	}
	return out
}
