// Package query builds connpass search requests from keyword, date window and region filters.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the date format the search page expects.
const DateLayout = "2006/01/02"

// Match selects how multiple keywords combine.
type Match string

const (
	MatchAll Match = "and"
	MatchAny Match = "or"
)

// Filter holds the user-facing search criteria.
// Nothing here is validated: an empty keyword list or a non-positive window is passed through.
type Filter struct {
	Keywords   []string
	Match      Match
	WindowDays int
	Region     string
}

// Window returns the start (today) and end (today + days) of the search window.
func Window(now time.Time, days int) (start, end time.Time) {
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, days)
}

// KeywordParam returns the API parameter name for the match mode:
// keyword (match all) or keyword_or (match any).
func KeywordParam(m Match) string {
	if strings.EqualFold(string(m), string(MatchAny)) {
		return "keyword_or"
	}
	return "keyword"
}

// APIParams builds the events API parameters: order, count and the comma-joined keywords.
func APIParams(f Filter, order, count int) url.Values {
	params := url.Values{}
	params.Set("order", strconv.Itoa(order))
	params.Set("count", strconv.Itoa(count))
	if len(f.Keywords) > 0 {
		params.Set(KeywordParam(f.Match), strings.Join(f.Keywords, ","))
	}
	return params
}

// SearchURL builds the fully-formed search results page URL.
// The page only supports conjunctive search, so keywords are space-joined regardless of Match.
func SearchURL(baseURL string, f Filter, now time.Time) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	start, end := Window(now, f.WindowDays)

	params := url.Values{}
	params.Set("q", strings.Join(f.Keywords, " "))
	params.Set("start_from", start.Format(DateLayout))
	params.Set("start_to", end.Format(DateLayout))
	params.Set("prefectures", f.Region)
	params.Set("selectItem", f.Region)
	params.Set("sort", "")
	u.RawQuery = params.Encode()

	return u.String(), nil
}
