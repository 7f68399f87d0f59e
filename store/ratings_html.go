package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/domino14/lineupsolver/relativity"
)

var ErrNoRatingsTable = errors.New("no ratings table found")

const UserAgent = "lineupsolver/1.0"

var _ relativity.RatingSource = (*RatingsPage)(nil)

// ParseRatingsHTML reads the first table whose header has a name column
// and a rating column. Rows with an unreadable rating are skipped.
func ParseRatingsHTML(r io.Reader) (map[string]float64, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	var out map[string]float64
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		nameCol, ratingCol := headerColumns(table)
		if nameCol < 0 || ratingCol < 0 {
			return true
		}
		out = map[string]float64{}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= max(nameCol, ratingCol) {
				return
			}
			name := strings.Join(strings.Fields(cells.Eq(nameCol).Text()), " ")
			rating, err := parseRating(cells.Eq(ratingCol).Text())
			if name == "" || err != nil {
				return
			}
			out[name] = rating
		})
		return false
	})
	if out == nil {
		return nil, ErrNoRatingsTable
	}
	return out, nil
}

func headerColumns(table *goquery.Selection) (int, int) {
	nameCol, ratingCol := -1, -1
	table.Find("th").Each(func(i int, th *goquery.Selection) {
		h := strings.ToLower(strings.TrimSpace(th.Text()))
		switch {
		case nameCol < 0 && (strings.Contains(h, "name") || strings.Contains(h, "player")):
			nameCol = i
		case ratingCol < 0 && (strings.Contains(h, "rating") || h == "elo"):
			ratingCol = i
		}
	})
	return nameCol, ratingCol
}

// parseRating accepts forms like "1834", "1834.5", "1834P12" or "1834/1790"
// and keeps the leading number.
func parseRating(s string) (float64, error) {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if end >= 0 {
		s = s[:end]
	}
	return strconv.ParseFloat(s, 64)
}

// RatingsPage fetches and parses a published ratings table.
type RatingsPage struct {
	URL     string
	Client  *http.Client
	Retries uint
}

func (p *RatingsPage) Ratings(ctx context.Context) (map[string]float64, error) {
	logger := zerolog.Ctx(ctx)
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	var ratings map[string]float64
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("creating ratings request: %w", err))
			}
			req.Header.Set("User-Agent", UserAgent)
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("performing ratings HTTP GET: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return fmt.Errorf("unexpected ratings status %d: %s", resp.StatusCode, string(body))
			}
			ratings, err = ParseRatingsHTML(resp.Body)
			if errors.Is(err, ErrNoRatingsTable) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(max(1, p.Retries)),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			logger.Warn().Err(err).Uint("n", n).Str("url", p.URL).Msg("ratings-fetch-retry")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("players", len(ratings)).Str("url", p.URL).Msg("ratings-fetched")
	return ratings, nil
}
