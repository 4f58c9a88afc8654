package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/XavierBriggs/fortuna/services/odds-composer/pkg/models/nba"
	"github.com/XavierBriggs/fortuna/services/odds-composer/pkg/viewer"
)

func main() {
	fmt.Println("🚀 Starting Odds Viewer...")

	baseURL := os.Getenv("COMPOSER_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3001"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view := viewer.NewView()
	sub := viewer.NewSubscriber(baseURL, view)
	sub.OnApply = func(v *viewer.View) {
		if !v.HasFixture() {
			return
		}
		fmt.Printf("📥 fixture %v: %d lines\n", v.FixtureID(), v.NewLines())
		printTable(v)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		fmt.Println("\n🛑 Shutting down...")
		cancel()
	}()

	fmt.Printf("✓ Subscribed to %s/api/events\n", baseURL)
	sub.Run(ctx)
}

// printTable renders the balanced-lines table, one row per player, one
// column per market.
func printTable(v *viewer.View) {
	players := v.Players()
	if len(players) == 0 {
		return
	}

	headings := make([]string, 0, len(nba.MarketTypes)+1)
	headings = append(headings, "Player")
	for _, market := range nba.MarketTypes {
		headings = append(headings, nba.Labels[market])
	}
	fmt.Println(strings.Join(headings, "\t"))

	for _, p := range players {
		row := make([]string, 0, len(nba.MarketTypes)+1)
		name := p.Name
		if p.TeamName != "" {
			name = fmt.Sprintf("%s (%s)", p.Name, p.TeamName)
		}
		row = append(row, name)
		for _, market := range nba.MarketTypes {
			row = append(row, renderCell(v, p.ID, market))
		}
		fmt.Println(strings.Join(row, "\t"))
	}
}

// renderCell shows "line O/U over|under" for the cell's current balance line.
func renderCell(v *viewer.View, playerID, market string) string {
	line, ok := v.CurrentBalanceLine(playerID, market)
	if !ok {
		return "N/A"
	}
	cell, ok := v.Cell(playerID, market, line)
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%v O:%v U:%v", line, orNA(cell["balance_line_over_odds"]), orNA(cell["balance_line_under_odds"]))
}

func orNA(v any) any {
	if v == nil {
		return "N/A"
	}
	return v
}
