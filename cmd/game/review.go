package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sburbterm/internal/config"
	"sburbterm/internal/logging"
)

func runReviewMode(cfg config.Config, n int) {
	logger, err := logging.NewCommandLogger(cfg.Path(cfg.CommandLogPath))
	if err != nil {
		fmt.Printf("Failed to open command log: %v\n", err)
		return
	}
	defer logger.Close()

	entries, err := logger.Recent(context.Background(), n)
	if err != nil {
		fmt.Printf("Failed to read command log: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("No commands logged. Play a session first!")
		return
	}

	fmt.Printf("Recent commands (%d):\n\n", len(entries))
	for _, e := range entries {
		fmt.Print(formatEntry(e))
		fmt.Println(strings.Repeat("-", 50))
	}
	fmt.Println("\nTo rate a response: game rate <id> <rating> [notes]")
}

func formatEntry(e logging.CommandLog) string {
	var b strings.Builder
	session := e.SessionID
	if len(session) > 8 {
		session = session[:8]
	}
	fmt.Fprintf(&b, "[%d] %s | %s | %s\n", e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), session, e.Command)
	fmt.Fprintf(&b, "Response: %s\n", e.Response)
	if e.Rating != nil {
		fmt.Fprintf(&b, "Rating: %d/5", *e.Rating)
		if e.Notes != nil && *e.Notes != "" {
			fmt.Fprintf(&b, " - %s", *e.Notes)
		}
	} else {
		b.WriteString("Rating: not rated")
	}
	b.WriteString("\n")
	return b.String()
}

func runRatingMode(cfg config.Config, args []string) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Invalid ID: %v\n", err)
		return
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("Invalid rating: %v\n", err)
		return
	}
	if rating < 1 || rating > 5 {
		fmt.Println("Rating must be between 1 and 5")
		return
	}
	notes := strings.Join(args[2:], " ")

	logger, err := logging.NewCommandLogger(cfg.Path(cfg.CommandLogPath))
	if err != nil {
		fmt.Printf("Failed to open command log: %v\n", err)
		return
	}
	defer logger.Close()

	if err := logger.Rate(context.Background(), id, rating, notes); err != nil {
		fmt.Printf("Failed to rate command: %v\n", err)
		return
	}
	fmt.Printf("Rated command %d as %d/5", id, rating)
	if notes != "" {
		fmt.Printf(" with notes: %s", notes)
	}
	fmt.Println()
}
