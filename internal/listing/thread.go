package listing

import (
	"encoding/json"
	"errors"
	"time"
)

// Thread is a post with its comment tree.
type Thread struct {
	Post     Item
	Comments []Comment
	// More counts replies the upstream elided behind "load more" stubs.
	More int
}

// Comment is one node of a comment tree.
type Comment struct {
	ID         string
	Author     string
	Body       string
	Score      int
	CreatedUTC float64
	Depth      int
	Stickied   bool
	Replies    []Comment
	More       int
}

// Created returns the creation time.
func (c Comment) Created() time.Time {
	return time.Unix(int64(c.CreatedUTC), 0).UTC()
}

type commentData struct {
	ID         string          `json:"id"`
	Author     string          `json:"author"`
	Body       string          `json:"body"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Depth      int             `json:"depth"`
	Stickied   bool            `json:"stickied"`
	Replies    json.RawMessage `json:"replies"`
}

type moreData struct {
	Count int `json:"count"`
}

// DecodeThread parses the detail endpoint, a two element array of
// [post listing, comment listing].
func DecodeThread(body []byte) (Thread, error) {
	var parts []listingEnvelope
	if err := json.Unmarshal(body, &parts); err != nil {
		return Thread{}, &ParseError{Op: "thread", Err: err}
	}
	if len(parts) != 2 {
		return Thread{}, &ParseError{Op: "thread", Err: errors.New("expected [post, comments] pair")}
	}

	posts, err := decodePage(parts[0])
	if err != nil {
		return Thread{}, &ParseError{Op: "thread post", Err: err}
	}
	if len(posts.Items) == 0 {
		return Thread{}, &ParseError{Op: "thread post", Err: errors.New("post listing is empty")}
	}

	comments, more, err := decodeComments(parts[1].Data.Children, 0)
	if err != nil {
		return Thread{}, &ParseError{Op: "thread comments", Err: err}
	}
	return Thread{Post: posts.Items[0], Comments: comments, More: more}, nil
}

// decodeComments walks one level of children. replies is "" when a
// comment has none, otherwise a nested listing.
func decodeComments(children []thing, depth int) ([]Comment, int, error) {
	var out []Comment
	more := 0
	for _, child := range children {
		switch child.Kind {
		case "t1":
			var d commentData
			if err := json.Unmarshal(child.Data, &d); err != nil {
				return nil, 0, err
			}
			c := Comment{
				ID:         d.ID,
				Author:     d.Author,
				Body:       d.Body,
				Score:      d.Score,
				CreatedUTC: d.CreatedUTC,
				Depth:      depth,
				Stickied:   d.Stickied,
			}
			if len(d.Replies) > 0 && d.Replies[0] == '{' {
				var env listingEnvelope
				if err := json.Unmarshal(d.Replies, &env); err != nil {
					return nil, 0, err
				}
				replies, n, err := decodeComments(env.Data.Children, depth+1)
				if err != nil {
					return nil, 0, err
				}
				c.Replies = replies
				c.More = n
			}
			out = append(out, c)
		case "more":
			var d moreData
			if err := json.Unmarshal(child.Data, &d); err != nil {
				return nil, 0, err
			}
			more += d.Count
		}
	}
	return out, more, nil
}

// Flatten returns the tree in display order (depth first).
func Flatten(comments []Comment) []Comment {
	var out []Comment
	var walk func([]Comment)
	walk = func(cs []Comment) {
		for _, c := range cs {
			replies := c.Replies
			c.Replies = nil
			out = append(out, c)
			walk(replies)
		}
	}
	walk(comments)
	return out
}
