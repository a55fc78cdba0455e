package services

import "github.com/desertthunder/ncx/internal/models"

// FallbackToplists is served when the rankings page cannot be fetched.
func FallbackToplists() []models.Group {
	return []models.Group{
		{
			Title: "官方榜",
			Data: []models.ListItem{
				{ID: "3778678", Title: "飙升榜", Description: "每日更新", CoverImg: "https://p2.music.126.net/DrRIg6CrgDfVLEph9SNh7w==/18696095720518497.jpg?param=300y300"},
				{ID: "3779629", Title: "新歌榜", Description: "每日更新", CoverImg: "https://p2.music.126.net/mem2aOykdf7tEmd6bjZQWw==/18590542627753061.jpg?param=300y300"},
				{ID: "2884035", Title: "原创榜", Description: "每周更新", CoverImg: "https://p2.music.126.net/sBzD11nforcuh1jdLSgX7g==/18740076185638788.jpg?param=300y300"},
				{ID: "19723756", Title: "热歌榜", Description: "每周更新", CoverImg: "https://p2.music.126.net/GhhuF6Ep5Tpnpz9JXas-pw==/18708885596733693.jpg?param=300y300"},
			},
		},
	}
}
