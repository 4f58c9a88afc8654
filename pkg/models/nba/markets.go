// Package nba holds the NBA player-prop market catalogue.
package nba

// MarketTypes lists the player-prop markets in table column order.
var MarketTypes = []string{
	"points",
	"total_rebounds",
	"assists",
	"blocks",
	"steals",
	"turnovers",
	"three_point_field_goal",
	"pra",
	"pr",
	"pa",
	"bs",
	"ra",
}

// Labels maps a market type to its display heading.
var Labels = map[string]string{
	"points":                 "Points",
	"total_rebounds":         "Total Rebounds",
	"assists":                "Assists",
	"blocks":                 "Blocks",
	"steals":                 "Steals",
	"turnovers":              "Turnovers",
	"three_point_field_goal": "3PT FG",
	"pra":                    "PRA",
	"pr":                     "PR",
	"pa":                     "PA",
	"bs":                     "BS",
	"ra":                     "RA",
}
