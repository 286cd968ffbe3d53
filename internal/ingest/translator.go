package ingest

import (
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
)

// Keys into gofeed.Item.Custom where the per-item <source> element lands.
const (
	sourceTitleKey = "source"
	sourceURLKey   = "source_url"
)

// sourceTranslator keeps the RSS <source> element that the default
// translation drops. Google News feeds carry the real publisher there.
type sourceTranslator struct {
	base *gofeed.DefaultRSSTranslator
}

func newSourceTranslator() *sourceTranslator {
	return &sourceTranslator{base: &gofeed.DefaultRSSTranslator{}}
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	rssFeed, ok := feed.(*rss.Feed)
	if !ok {
		return nil, fmt.Errorf("feed is not an RSS feed")
	}

	translated, err := t.base.Translate(rssFeed)
	if err != nil {
		return nil, err
	}

	for i, item := range rssFeed.Items {
		if item.Source == nil || i >= len(translated.Items) {
			continue
		}
		out := translated.Items[i]
		if out.Custom == nil {
			out.Custom = make(map[string]string)
		}
		out.Custom[sourceTitleKey] = item.Source.Title
		out.Custom[sourceURLKey] = item.Source.URL
	}
	return translated, nil
}
