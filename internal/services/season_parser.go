package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mescon/Hassarr/internal/integration"
	"github.com/mescon/Hassarr/internal/responses"
)

// Season parse types.
const (
	ParseDefault     = "default"
	ParseExplicit    = "explicit"
	ParseWordNumber  = "word_number"
	ParseAll         = responses.ParseTypeAll
	ParseAllUnknown  = "all_unknown"
	ParseRange       = "range"
	ParseRemaining   = "remaining"
	ParseNoneMissing = "none_missing"
	ParseMultiple    = "multiple"
	ParseExtracted   = "extracted"
	ParseUnparseable = "unparseable"
)

// maxSeasonNumber bounds ranges when the show's season count is unknown.
const maxSeasonNumber = 100

// SeasonRequest is the interpretation of a free-form season input.
type SeasonRequest struct {
	Seasons []int
	Type    string
}

type wordNumber struct {
	re  *regexp.Regexp
	num int
}

var wordNumbers = func() []wordNumber {
	words := []string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}
	out := make([]wordNumber, len(words))
	for i, w := range words {
		out[i] = wordNumber{re: regexp.MustCompile(`\b` + w + `\b`), num: i + 1}
	}
	return out
}()

var (
	digitsOnly    = regexp.MustCompile(`^\d+$`)
	allSeasonsRe  = regexp.MustCompile(`\b(all|every|complete)\b`)
	remainingRe   = regexp.MustCompile(`\b(remaining|missing|rest|other)\b`)
	numberRe      = regexp.MustCompile(`\d+`)
	numberListRe  = regexp.MustCompile(`^\d+(?:[\s,]+\d+)+$`)
	seasonRangeRe = []*regexp.Regexp{
		regexp.MustCompile(`seasons?\s+(\d+)\s*(?:to|-)\s*(\d+)`),
		regexp.MustCompile(`(\d+)\s*(?:to|-)\s*(\d+)`),
	}
	titleSeasonPrefix = regexp.MustCompile(`(?i)^season\s+(\d+)\s+(?:of|from)\s+(.+)$`)
	titleSeasonSuffix = regexp.MustCompile(`(?i)^(.+?)\s+season\s+(\d+)$`)
)

// ParseSeasonRequest interprets input such as "2", "season two", "all",
// "1 to 3", "remaining" or "1, 3". analysis resolves "all" and "remaining"
// and may be nil.
func ParseSeasonRequest(input string, analysis *integration.SeasonAnalysis) SeasonRequest {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return SeasonRequest{Type: ParseDefault}
	}

	if digitsOnly.MatchString(s) {
		return SeasonRequest{Seasons: atoiAll([]string{s}), Type: ParseExplicit}
	}

	for _, w := range wordNumbers {
		if w.re.MatchString(s) {
			return SeasonRequest{Seasons: []int{w.num}, Type: ParseWordNumber}
		}
	}

	if allSeasonsRe.MatchString(s) {
		if analysis != nil && len(analysis.AllSeasons) > 0 {
			return SeasonRequest{Seasons: append([]int(nil), analysis.AllSeasons...), Type: ParseAll}
		}
		return SeasonRequest{Type: ParseAllUnknown}
	}

	for _, re := range seasonRangeRe {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		start, err1 := strconv.Atoi(m[1])
		end, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		limit := maxSeasonNumber
		if analysis != nil && analysis.TotalSeasons > 0 {
			limit = analysis.TotalSeasons
		}
		if end > limit {
			end = limit
		}
		if start <= end {
			seasons := make([]int, 0, end-start+1)
			for n := start; n <= end; n++ {
				seasons = append(seasons, n)
			}
			return SeasonRequest{Seasons: seasons, Type: ParseRange}
		}
	}

	if analysis != nil && remainingRe.MatchString(s) {
		if len(analysis.MissingSeasons) > 0 {
			return SeasonRequest{Seasons: append([]int(nil), analysis.MissingSeasons...), Type: ParseRemaining}
		}
		return SeasonRequest{Type: ParseNoneMissing}
	}

	numbers := numberRe.FindAllString(s, -1)
	switch {
	case len(numbers) > 0 && (strings.Contains(s, ",") || numberListRe.MatchString(s)):
		return SeasonRequest{Seasons: atoiAll(numbers), Type: ParseMultiple}
	case len(numbers) > 0:
		return SeasonRequest{Seasons: atoiAll(numbers), Type: ParseExtracted}
	}
	return SeasonRequest{Type: ParseUnparseable}
}

// ParseTitleSeason splits "Season 2 of Severance" or "Severance season 2"
// into the title and the season number.
func ParseTitleSeason(title string) (string, int, bool) {
	title = strings.TrimSpace(title)
	if m := titleSeasonPrefix.FindStringSubmatch(title); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return strings.TrimSpace(m[2]), n, true
		}
	}
	if m := titleSeasonSuffix.FindStringSubmatch(title); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil {
			return strings.TrimSpace(m[1]), n, true
		}
	}
	return title, 0, false
}

func atoiAll(ss []string) []int {
	out := make([]int, 0, len(ss))
	for _, s := range ss {
		if n, err := strconv.Atoi(s); err == nil {
			out = append(out, n)
		}
	}
	return out
}
