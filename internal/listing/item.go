package listing

import (
	"encoding/json"
	"time"
)

// Item is one upstream record. Raw holds the record exactly as received;
// the typed fields are a read-only view used for rendering decisions.
type Item struct {
	Raw json.RawMessage `json:"-"`

	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Subreddit   string     `json:"subreddit"`
	Permalink   string     `json:"permalink"`
	URL         string     `json:"url"`
	Domain      string     `json:"domain"`
	CreatedUTC  float64    `json:"created_utc"`
	Stickied    bool       `json:"stickied"`
	PostHint    string     `json:"post_hint"`
	Selftext    string     `json:"selftext"`
	Score       int        `json:"score"`
	NumComments int        `json:"num_comments"`
	MediaEmbed  MediaEmbed `json:"media_embed"`
}

// MediaEmbed is the embeddable player markup, HTML-escaped upstream.
type MediaEmbed struct {
	Content string `json:"content"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// UnmarshalJSON keeps the raw bytes alongside the decoded view.
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*it = Item(p)
	it.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the original record back out unchanged.
func (it Item) MarshalJSON() ([]byte, error) {
	if len(it.Raw) > 0 {
		return it.Raw, nil
	}
	type plain Item
	return json.Marshal(plain(it))
}

// Created returns the creation time.
func (it Item) Created() time.Time {
	if it.CreatedUTC == 0 {
		return time.Time{}
	}
	sec := int64(it.CreatedUTC)
	return time.Unix(sec, 0).UTC()
}

// Key identifies an item across pages. Fullname first, then permalink.
func (it Item) Key() string {
	if it.Name != "" {
		return it.Name
	}
	if it.Permalink != "" {
		return it.Permalink
	}
	return it.ID
}

// Page is one fetched slice of a listing.
type Page struct {
	Items  []Item
	After  string
	Before string
}

// Cursor returns the continuation data for the following request.
func (p Page) Cursor() Cursor {
	return Cursor{After: p.After, Before: p.Before}
}

// HasMore reports whether the page carries a cursor to continue from.
func (p Page) HasMore() bool {
	return p.After != ""
}

// thing is the upstream envelope around every record.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// listingEnvelope is {kind: "Listing", data: {children, after, before}}.
type listingEnvelope struct {
	Kind string `json:"kind"`
	Data struct {
		Children []thing `json:"children"`
		After    *string `json:"after"`
		Before   *string `json:"before"`
	} `json:"data"`
}

// decodePage converts an envelope into a Page. Children that are not
// posts ("more" stubs, comments) are skipped.
func decodePage(env listingEnvelope) (Page, error) {
	page := Page{Items: make([]Item, 0, len(env.Data.Children))}
	if env.Data.After != nil {
		page.After = *env.Data.After
	}
	if env.Data.Before != nil {
		page.Before = *env.Data.Before
	}
	for _, child := range env.Data.Children {
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}
		var it Item
		if err := json.Unmarshal(child.Data, &it); err != nil {
			return Page{}, err
		}
		page.Items = append(page.Items, it)
	}
	return page, nil
}

// DecodePage parses a listing response body.
func DecodePage(body []byte) (Page, error) {
	var env listingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Page{}, &ParseError{Op: "listing", Err: err}
	}
	page, err := decodePage(env)
	if err != nil {
		return Page{}, &ParseError{Op: "listing item", Err: err}
	}
	return page, nil
}
