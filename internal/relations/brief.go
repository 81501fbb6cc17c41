package relations

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/starford/dock/internal/models"
	"github.com/starford/dock/internal/parser"
)

// DefaultMarketLabels are the figures tracked across briefs.
var DefaultMarketLabels = []string{"S&P 500", "Nasdaq", "Dow", "BTC", "ETH"}

var (
	marketValueRe = regexp.MustCompile(`:\s*\$?([0-9][0-9,]*\.?\d*)`)
	listMarkerRe  = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s*`)
	isoDateRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

const dateLayout = "2006-01-02"

// Market is one tracked figure as found in a brief.
// Value is nil when the line has no parseable number.
type Market struct {
	Raw   string   `json:"raw"`
	Value *float64 `json:"value"`
}

// MarketRow compares one label across two briefs. Nil means unavailable.
type MarketRow struct {
	Label     string   `json:"label"`
	Yesterday *float64 `json:"yesterday"`
	Today     *float64 `json:"today"`
	Delta     *float64 `json:"delta"`
}

// BriefComparison pairs a brief with its chronological predecessor.
type BriefComparison struct {
	Today            models.Doc        `json:"today"`
	Yesterday        models.Doc        `json:"yesterday"`
	TodayMarkets     map[string]Market `json:"todayMarkets"`
	YesterdayMarkets map[string]Market `json:"yesterdayMarkets"`
	Rows             []MarketRow       `json:"rows"`
}

// ParseMarkets finds, for each label, the first line of content containing it.
// Labels without a line are absent from the result.
func ParseMarkets(content string, labels []string) map[string]Market {
	lines := strings.Split(content, "\n")
	out := make(map[string]Market, len(labels))
	for _, label := range labels {
		for _, line := range lines {
			if !strings.Contains(line, label) {
				continue
			}
			raw := strings.TrimSpace(listMarkerRe.ReplaceAllString(line, ""))
			out[label] = Market{Raw: raw, Value: parseMarketValue(raw)}
			break
		}
	}
	return out
}

func parseMarketValue(line string) *float64 {
	m := marketValueRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// BriefDate returns the calendar date of a brief: the front-matter "date",
// else a YYYY-MM-DD in the title, else the creation day.
func BriefDate(d models.Doc) (time.Time, bool) {
	if s := parser.StringValue(d.FrontMatter, "date"); s != "" {
		if t, err := time.Parse(dateLayout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	if m := isoDateRe.FindString(d.Title); m != "" {
		if t, err := time.Parse(dateLayout, m); err == nil {
			return t, true
		}
	}
	if d.CreatedAt != nil {
		y, mo, day := d.CreatedAt.UTC().Date()
		return time.Date(y, mo, day, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// CompareBriefs pairs active with the brief dated immediately before it.
// It returns nil when active is not a dated brief or has no predecessor.
func CompareBriefs(docs []models.Doc, active models.Doc, labels []string) *BriefComparison {
	if active.Type != models.TypeBrief {
		return nil
	}
	if _, ok := BriefDate(active); !ok {
		return nil
	}
	if len(labels) == 0 {
		labels = DefaultMarketLabels
	}

	type dated struct {
		doc  models.Doc
		date time.Time
	}
	var briefs []dated
	for _, d := range docs {
		if d.Type != models.TypeBrief {
			continue
		}
		if t, ok := BriefDate(d); ok {
			briefs = append(briefs, dated{doc: d, date: t})
		}
	}
	slices.SortStableFunc(briefs, func(a, b dated) int { return a.date.Compare(b.date) })

	idx := slices.IndexFunc(briefs, func(b dated) bool { return b.doc.Path == active.Path })
	if idx <= 0 {
		return nil
	}

	today, yesterday := briefs[idx].doc, briefs[idx-1].doc
	cmp := &BriefComparison{
		Today:            today,
		Yesterday:        yesterday,
		TodayMarkets:     ParseMarkets(today.Content, labels),
		YesterdayMarkets: ParseMarkets(yesterday.Content, labels),
	}
	for _, label := range labels {
		row := MarketRow{
			Label:     label,
			Today:     cmp.TodayMarkets[label].Value,
			Yesterday: cmp.YesterdayMarkets[label].Value,
		}
		if row.Today != nil && row.Yesterday != nil {
			delta := *row.Today - *row.Yesterday
			row.Delta = &delta
		}
		cmp.Rows = append(cmp.Rows, row)
	}
	return cmp
}
