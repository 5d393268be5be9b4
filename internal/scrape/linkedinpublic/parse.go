package linkedinpublic

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"leadscout/internal/domain"
	"leadscout/internal/scrape/types"
	"leadscout/internal/scrape/util"
)

const (
	maxCardsPerKeyword = 10
	maxContentRunes    = 500
	minContentRunes    = 10

	defaultAuthor = "LinkedIn User"
	linkedinRoot  = "https://www.linkedin.com/"
)

const (
	cardSel = `div[class*="entity-result"], li[class*="entity-result"], ` +
		`div[class*="update-components-actor"], li[class*="update-components-actor"], ` +
		`div[class*="reusable-search__result"], li[class*="reusable-search__result"], ` +
		`div[class*="search-result"], li[class*="search-result"]`
	authorSel = `span[class*="entity-result__title-text"], div[class*="entity-result__title-text"], ` +
		`span[class*="update-components-actor__name"], div[class*="update-components-actor__name"], ` +
		`span[class*="actor-name"], div[class*="actor-name"]`
	contentSel = `p[class*="entity-result__summary"], div[class*="entity-result__summary"], ` +
		`p[class*="update-components-text"], div[class*="update-components-text"], ` +
		`p[class*="feed-shared-text"], div[class*="feed-shared-text"]`
	titleSel = `a[class*="app-aware-link"], span[class*="app-aware-link"], ` +
		`a[class*="entity-result__title"], span[class*="entity-result__title"]`
	timeSel = `time, span[class*="sub-description"], span[class*="time-badge"], ` +
		`span[class*="entity-result__simple-insight"]`
)

var reFirstNumber = regexp.MustCompile(`\d+`)

// Card is what one search result yields before it becomes a Lead.
type Card struct {
	Author     string
	Title      string
	Content    string
	Href       string
	Engagement int
	Age        string
}

// ParseCards returns the outermost result cards of a search page, at most
// maxCardsPerKeyword of them.
func ParseCards(r io.Reader) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var cards []Card
	doc.Find(cardSel).
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ParentsFiltered(cardSel).Length() == 0
		}).
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			cards = append(cards, parseCard(s))
			return len(cards) < maxCardsPerKeyword
		})
	return cards, nil
}

func parseCard(s *goquery.Selection) Card {
	c := Card{
		Author:  util.CleanText(s.Find(authorSel).First().Text()),
		Title:   util.CleanText(s.Find(titleSel).First().Text()),
		Content: util.CleanText(s.Find(contentSel).First().Text()),
	}
	if href, ok := s.Find("a[href]").First().Attr("href"); ok {
		c.Href = strings.TrimSpace(href)
	}

	s.Find("span, button").
		FilterFunction(func(_ int, el *goquery.Selection) bool {
			class, _ := el.Attr("class")
			return strings.Contains(strings.ToLower(class), "reaction")
		}).
		EachWithBreak(func(_ int, el *goquery.Selection) bool {
			txt := strings.ReplaceAll(el.Text(), ",", "")
			if n := reFirstNumber.FindString(txt); n != "" {
				c.Engagement, _ = strconv.Atoi(n)
				return false
			}
			return true
		})

	s.Find(timeSel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		txt := util.CleanText(el.Text())
		if _, ok := ParseRelativeTime(txt, time.Now()); ok {
			c.Age = txt
			return false
		}
		return true
	})
	return c
}

func searchURL(base, keyword string) string {
	return strings.TrimRight(base, "/") + "/search/results/content/?keywords=" +
		escapeKeyword(keyword) + "&origin=GLOBAL_SEARCH_HEADER&start=0"
}

func toLead(c Card, keyword string, position int, now time.Time) (domain.Lead, types.SkipReason) {
	title := c.Title
	if title == "" {
		title = keyword
	}
	content := title
	if c.Content != "" {
		content = title + "\n\n" + c.Content
	}
	content = util.Truncate(content, maxContentRunes)
	if len([]rune(strings.TrimSpace(content))) < minContentRunes {
		return domain.Lead{}, types.SkipTooShort
	}

	ts, ok := ParseRelativeTime(c.Age, now)
	if !ok {
		return domain.Lead{}, types.SkipInvalid
	}

	// the search fallback keeps its query; it is the only thing that
	// tells two keywords' fallbacks apart
	link := searchURL(linkedinRoot, keyword)
	if abs := util.AbsoluteURL(linkedinRoot, c.Href); abs != "" {
		link = util.CanonicalizeURL(abs)
	}

	author := c.Author
	if author == "" {
		author = defaultAuthor
	}

	lead, err := domain.NewLead(domain.Lead{
		Source:          domain.SourceLinkedInPublic,
		Author:          author,
		Content:         content,
		Title:           title,
		Timestamp:       ts,
		URL:             link,
		EngagementScore: c.Engagement,
		Metadata: map[string]string{
			"search_query":     keyword,
			"result_position":  strconv.Itoa(position),
			"is_public_search": "true",
			"scrape_method":    "public_no_auth",
		},
	})
	if err != nil {
		return domain.Lead{}, types.SkipInvalid
	}
	return lead, types.SkipNone
}
