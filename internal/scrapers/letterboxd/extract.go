package letterboxd

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"filmpalette-backend/internal/diary"
	"filmpalette-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var dateTokenRegex = regexp.MustCompile(`/(\d{2})/(\d{2})/`)

var errNoDateToken = errors.New("no MM/DD segment in date token")

// ParseDateToken reads the first /MM/DD/ segment of a diary day link.
func ParseDateToken(token string) (diary.DayOfYear, error) {
	groups := dateTokenRegex.FindStringSubmatch(token)
	if len(groups) < 3 {
		return diary.DayOfYear{}, errNoDateToken
	}
	month, err := strconv.Atoi(groups[1])
	if err != nil {
		return diary.DayOfYear{}, err
	}
	day, err := strconv.Atoi(groups[2])
	if err != nil {
		return diary.DayOfYear{}, err
	}
	return diary.NewDayOfYear(month, day)
}

func isPlaceholder(src string) bool {
	src = strings.TrimSpace(src)
	return src == "" ||
		strings.HasPrefix(src, "data:") ||
		strings.Contains(src, "empty-poster")
}

// firstSrcsetCandidate returns the url of the first "url descriptor" pair.
func firstSrcsetCandidate(srcset string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(srcset), ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func resolveRef(ref string, base *url.URL) string {
	if base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(parsed).String()
}

// posterFromImage returns the first usable poster url under sel, resolved
// against base, or "" if there are only placeholders.
func posterFromImage(sel *goquery.Selection, base *url.URL) string {
	imgs := sel.Find(posterSelector + " img")
	if imgs.Length() == 0 {
		imgs = sel.Find("img")
	}

	var ref string
	imgs.EachWithBreak(func(_ int, img *goquery.Selection) bool {
		candidates := []string{
			img.AttrOr("data-src", ""),
			firstSrcsetCandidate(img.AttrOr("srcset", "")),
			img.AttrOr("src", ""),
		}
		for _, c := range candidates {
			if isPlaceholder(c) {
				continue
			}
			ref = resolveRef(strings.TrimSpace(c), base)
			if ref != "" {
				return false
			}
		}
		return true
	})
	return ref
}

func filmName(sel *goquery.Selection) string {
	name := htmlutil.SelectionText(sel.Find(detailsSelector + " h3 a"))
	if name == "" {
		name = htmlutil.SelectionText(sel.Find("h3 a"))
	}
	if name == "" {
		name = htmlutil.NormalizeText(sel.Find(posterSelector + " img").AttrOr("alt", ""))
	}
	return name
}

func dateToken(sel *goquery.Selection) string {
	token := sel.Find("td.td-day a").AttrOr("href", "")
	if token == "" {
		token = sel.AttrOr("data-viewing-date", "")
	}
	if token == "" {
		token = sel.Find("[data-viewing-date]").AttrOr("data-viewing-date", "")
	}
	return token
}

// Extract turns a raw row into an entry. The mode decides which fields are
// required, an entry missing one is dropped with a failure.
func Extract(raw RawEntry, mode diary.Mode) (diary.Entry, *diary.Failure) {
	fail := func(kind diary.FailureKind, ref string, err error) (diary.Entry, *diary.Failure) {
		return diary.Entry{}, &diary.Failure{
			Kind: kind,
			Page: raw.Page,
			Row:  raw.Row,
			Ref:  ref,
			Err:  err,
		}
	}

	entry := diary.Entry{Page: raw.Page, Row: raw.Row}
	if raw.Selection == nil {
		return fail(diary.FailureMissingPoster, "", errors.New("empty row"))
	}

	entry.PosterRef = posterFromImage(raw.Selection, raw.PageUrl)
	if entry.PosterRef == "" {
		entry.PosterRef = raw.HydratedPoster
	}
	if entry.PosterRef == "" {
		return fail(diary.FailureMissingPoster, "", nil)
	}

	entry.FilmName = filmName(raw.Selection)

	token := dateToken(raw.Selection)
	var dateErr error
	if token != "" {
		date, err := ParseDateToken(token)
		if err == nil {
			entry.ViewingDate = &date
		} else {
			dateErr = err
		}
	}

	switch mode {
	case diary.ModeDay:
		if token == "" {
			return fail(diary.FailureMissingDate, "", nil)
		}
		if dateErr != nil {
			return fail(diary.FailureMalformedDate, token, fmt.Errorf("parse date token: %w", dateErr))
		}
	case diary.ModeFilm:
		if entry.FilmName == "" {
			return fail(diary.FailureMissingFilmName, "", nil)
		}
	}

	return entry, nil
}
