package responses

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mescon/Hassarr/internal/integration"
)

const bytesPerGB = 1024 * 1024 * 1024

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func toGB(b int64) float64 {
	if b <= 0 {
		return 0
	}
	return round(float64(b)/bytesPerGB, 2)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// truncate cuts s to n runes and appends suffix when it was longer.
func truncate(s string, n int, suffix string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + suffix
}

// extractYear returns the first four characters of the release or first-air
// date, or "Unknown".
func extractYear(r integration.SearchResult) string {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) >= 4 {
		return date[:4]
	}
	return "Unknown"
}

func resultTitle(r integration.SearchResult) string {
	return orDefault(r.DisplayTitle(), "Unknown")
}

// mediaStatus returns the raw status and its text for an optional mediaInfo.
func mediaStatus(mi *integration.MediaInfo, absent string) (*int, string) {
	if mi == nil {
		return nil, absent
	}
	code := int(mi.Status)
	return &code, mi.Status.Text()
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// seasonPhrase renders "Season 2 <verb>" or "Seasons 1, 3 <pluralVerb>".
func seasonPhrase(seasons []int, verb, pluralVerb string) string {
	if len(seasons) == 1 {
		return "Season " + strconv.Itoa(seasons[0]) + " " + verb
	}
	return "Seasons " + joinInts(seasons) + " " + pluralVerb
}

// formatCreated renders an ISO timestamp as "2006-01-02 15:04", keeping
// unparseable values as is.
func formatCreated(s string) string {
	if s == "" {
		return "Unknown"
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02 15:04")
}

func genreNames(d *integration.MediaDetails, n int) []string {
	names := []string{}
	if d == nil {
		return names
	}
	for _, g := range d.Genres {
		if len(names) == n {
			break
		}
		names = append(names, g.Name)
	}
	return names
}

func contains(ns []int, n int) bool {
	for _, v := range ns {
		if v == n {
			return true
		}
	}
	return false
}
