package letterboxd

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

type fixtureRow struct {
	// Day is the MM/DD part of the day link, "" leaves the link out.
	Day    string
	Name   string
	Poster string
	// PosterAttrs replaces the default img attributes when set.
	PosterAttrs string
	// DivAttrs are extra attributes on div.poster.
	DivAttrs string
}

func (r fixtureRow) html(username string, year int) string {
	var b strings.Builder
	b.WriteString(`<tr class="diary-entry-row viewing-poster-container">`)
	b.WriteString(`<td class="td-calendar"></td>`)
	if r.Day != "" {
		fmt.Fprintf(&b, `<td class="td-day diary-day center"><a href="/%s/films/diary/for/%d/%s/">%s</a></td>`,
			username, year, r.Day, r.Day)
	} else {
		b.WriteString(`<td class="td-day diary-day center"></td>`)
	}

	b.WriteString(`<td class="td-film-details">`)
	fmt.Fprintf(&b, `<div class="really-lazy-load poster film-poster"%s>`, r.DivAttrs)
	attrs := r.PosterAttrs
	if attrs == "" && r.Poster != "" {
		attrs = fmt.Sprintf(`src="%s"`, r.Poster)
	}
	fmt.Fprintf(&b, `<img class="image" width="35" height="52" alt="%s" %s />`, r.Name, attrs)
	b.WriteString(`</div>`)
	if r.Name != "" {
		fmt.Fprintf(&b, `<h3 class="headline-3 prettify"><a href="/film/x/">%s</a></h3>`, r.Name)
	}
	b.WriteString(`</td></tr>`)
	return b.String()
}

func diaryPageHtml(username string, year int, rows ...fixtureRow) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>Diary</title></head><body>`)
	b.WriteString(`<table id="diary-table"><tbody>`)
	for _, r := range rows {
		b.WriteString(r.html(username, year))
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

// rawEntries parses a page the same way PageFetcher does, without a browser.
func rawEntries(t *testing.T, pageUrl string, page int, html string) []RawEntry {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	u, err := url.Parse(pageUrl)
	require.NoError(t, err)

	var out []RawEntry
	findRows(doc).Each(func(i int, s *goquery.Selection) {
		out = append(out, RawEntry{Page: page, Row: i + 1, Selection: s, PageUrl: u})
	})
	return out
}
