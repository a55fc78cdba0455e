// Package extract turns the catalog's server-rendered rankings page into [models.Group] values.
//
// Extraction runs in two passes. [Tokenize] flattens the children of the rankings
// container into [Node] values, and [Reduce] folds those nodes into groups with an
// explicit two-state machine. Markup that does not fit the expected shape yields a
// partial model rather than an error.
package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/desertthunder/ncx/internal/models"
)

// Container is the selector of the element whose children hold the rankings.
const Container = ".n-minelst"

const coverParam = "param=300y300"

// Kind classifies a child of the rankings container.
type Kind int

const (
	Other Kind = iota
	Heading
	List
)

func (k Kind) String() string {
	switch k {
	case Heading:
		return "heading"
	case List:
		return "list"
	default:
		return "other"
	}
}

// Node is one child of the rankings container.
type Node struct {
	Kind  Kind
	Text  string            // heading text
	Items []models.ListItem // list entries with an id
}

// Toplists parses a rankings page.
func Toplists(r io.Reader) ([]models.Group, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse toplist page: %w", err)
	}
	return Reduce(Tokenize(doc)), nil
}

// Tokenize flattens the direct children of the first [Container] element.
func Tokenize(doc *goquery.Document) []Node {
	var nodes []Node
	doc.Find(Container).First().Children().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "h2":
			nodes = append(nodes, Node{Kind: Heading, Text: strings.TrimSpace(s.Text())})
		case "ul":
			nodes = append(nodes, Node{Kind: List, Items: listItems(s)})
		default:
			nodes = append(nodes, Node{Kind: Other})
		}
	})
	return nodes
}

func listItems(ul *goquery.Selection) []models.ListItem {
	items := []models.ListItem{}
	ul.Children().Each(func(_ int, li *goquery.Selection) {
		id, _ := li.Attr("data-res-id")
		if id = strings.TrimSpace(id); id == "" {
			return
		}
		src, _ := li.Find("img").First().Attr("src")
		items = append(items, models.ListItem{
			ID:          id,
			Title:       strings.TrimSpace(li.Find("p.name").First().Text()),
			Description: strings.TrimSpace(li.Find("p.s-fc4").First().Text()),
			CoverImg:    CoverURL(src),
		})
	})
	return items
}

type state int

const (
	noGroup state = iota
	inGroup
)

// Reduce folds nodes into groups in a single forward pass.
//
// A heading closes any open group and opens a new one. A list appends its items to
// the open group and is ignored when no group is open. The open group is emitted at
// the end of input.
func Reduce(nodes []Node) []models.Group {
	groups := []models.Group{}
	st := noGroup
	var cur models.Group

	for _, n := range nodes {
		switch n.Kind {
		case Heading:
			if st == inGroup {
				groups = append(groups, cur)
			}
			cur = models.Group{Title: n.Text, Data: []models.ListItem{}}
			st = inGroup
		case List:
			if st == inGroup {
				cur.Data = append(cur.Data, n.Items...)
			}
		}
	}

	if st == inGroup {
		groups = append(groups, cur)
	}
	return groups
}

// CoverURL upgrades an image URL to https and pins its size to 300x300.
//
// A query following ".jpg?" is replaced; a URL without a query gets one appended.
// An empty src stays empty.
func CoverURL(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(src, "http:"); ok {
		src = "https:" + rest
	}
	if !strings.Contains(src, "?") {
		return src + "?" + coverParam
	}
	if before, _, ok := strings.Cut(src, ".jpg?"); ok {
		return before + ".jpg?" + coverParam
	}
	return src
}
