package extract

import (
	"strings"
	"testing"

	"github.com/desertthunder/ncx/internal/models"
)

const page = `<html><body>
<div class="g-sd3">
  <div class="n-minelst">
    <h2 class="f-ff1">云音乐特色榜</h2>
    <ul class="f-cb">
      <li data-res-id="19723756">
        <div class="item"><img src="http://p1.music.126.net/a.jpg?param=40y40"></div>
        <p class="name"><a href="/discover/toplist?id=19723756">飙升榜</a></p>
        <p class="s-fc4">每天更新</p>
      </li>
      <li>
        <img src="http://p1.music.126.net/b.jpg">
        <p class="name">orphan</p>
      </li>
    </ul>
    <h2 class="f-ff1">全球媒体榜</h2>
    <ul class="f-cb">
      <li data-res-id="60198">
        <img src="https://p1.music.126.net/c.jpg">
        <p class="name">Billboard</p>
        <p class="s-fc4">每周三更新</p>
      </li>
    </ul>
  </div>
</div>
</body></html>`

func TestToplists(t *testing.T) {
	t.Run("two headings and two lists", func(t *testing.T) {
		groups, err := Toplists(strings.NewReader(page))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(groups))
		}

		first := groups[0]
		if first.Title != "云音乐特色榜" {
			t.Errorf("unexpected title %q", first.Title)
		}
		if len(first.Data) != 1 {
			t.Fatalf("expected item without id to be dropped, got %d items", len(first.Data))
		}

		want := models.ListItem{
			ID:          "19723756",
			Title:       "飙升榜",
			Description: "每天更新",
			CoverImg:    "https://p1.music.126.net/a.jpg?param=300y300",
		}
		if first.Data[0] != want {
			t.Errorf("got %+v, want %+v", first.Data[0], want)
		}

		if got := groups[1].Data[0].CoverImg; got != "https://p1.music.126.net/c.jpg?param=300y300" {
			t.Errorf("unexpected cover %s", got)
		}
	})

	t.Run("missing container yields no groups", func(t *testing.T) {
		groups, err := Toplists(strings.NewReader("<html><body><p>blocked</p></body></html>"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(groups) != 0 {
			t.Errorf("expected no groups, got %d", len(groups))
		}
	})
}

func TestReduce(t *testing.T) {
	item := func(id string) models.ListItem { return models.ListItem{ID: id} }

	t.Run("list before any heading is ignored", func(t *testing.T) {
		groups := Reduce([]Node{
			{Kind: List, Items: []models.ListItem{item("1")}},
			{Kind: Heading, Text: "A"},
			{Kind: List, Items: []models.ListItem{item("2")}},
		})
		if len(groups) != 1 || len(groups[0].Data) != 1 || groups[0].Data[0].ID != "2" {
			t.Errorf("unexpected groups %+v", groups)
		}
	})

	t.Run("consecutive headings emit an empty group", func(t *testing.T) {
		groups := Reduce([]Node{
			{Kind: Heading, Text: "A"},
			{Kind: Heading, Text: "B"},
			{Kind: Other},
			{Kind: List, Items: []models.ListItem{item("3")}},
		})
		if len(groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(groups))
		}
		if len(groups[0].Data) != 0 || groups[0].Data == nil {
			t.Errorf("expected empty non-nil data for A, got %#v", groups[0].Data)
		}
		if groups[1].Title != "B" || len(groups[1].Data) != 1 {
			t.Errorf("unexpected second group %+v", groups[1])
		}
	})

	t.Run("two lists under one heading accumulate", func(t *testing.T) {
		groups := Reduce([]Node{
			{Kind: Heading, Text: "A"},
			{Kind: List, Items: []models.ListItem{item("1")}},
			{Kind: List, Items: []models.ListItem{item("2")}},
		})
		if len(groups) != 1 || len(groups[0].Data) != 2 {
			t.Errorf("unexpected groups %+v", groups)
		}
	})

	t.Run("no input", func(t *testing.T) {
		if groups := Reduce(nil); len(groups) != 0 {
			t.Errorf("expected no groups, got %+v", groups)
		}
	})
}

func TestCoverURL(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{"http upgraded and param appended", "http://p1.music.126.net/x.jpg", "https://p1.music.126.net/x.jpg?param=300y300"},
		{"jpg query replaced", "https://p1.music.126.net/x.jpg?param=40y40&t=1", "https://p1.music.126.net/x.jpg?param=300y300"},
		{"non jpg query kept", "https://p1.music.126.net/x.png?param=40y40", "https://p1.music.126.net/x.png?param=40y40"},
		{"empty", "", ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoverURL(tt.in); got != tt.want {
				t.Errorf("CoverURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
