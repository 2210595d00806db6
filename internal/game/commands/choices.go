package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sburbterm/internal/game/choice"
)

func runChoices(_ context.Context, d *Dispatcher, _ []string) Response {
	active := d.choices.Active()
	if len(active) == 0 {
		return d.respond("choices", "No decisions await you right now. The timeline flows on.", KindInfo, "info")
	}
	var b strings.Builder
	b.WriteString(d.voice(fmt.Sprintf("%d decision(s) await you:", len(active)), "info"))
	for _, c := range active {
		b.WriteString("\n\n")
		b.WriteString(FormatChoice(c))
	}
	return d.plain(b.String(), KindInfo)
}

// FormatChoice renders a pending choice with 1-based option numbers.
func FormatChoice(c choice.Choice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", c.ID, c.Title)
	if c.Description != "" {
		b.WriteString("\n" + c.Description)
	}
	for i, o := range c.Options {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, o.Text)
		if o.Hint != "" {
			fmt.Fprintf(&b, " (%s)", o.Hint)
		}
	}
	return b.String()
}

// runChoose accepts "choose <n>" when exactly one choice is pending, or
// "choose <id> <n>".
func runChoose(_ context.Context, d *Dispatcher, args []string) Response {
	var id, num string
	switch len(args) {
	case 1:
		active := d.choices.Active()
		switch len(active) {
		case 0:
			return d.respond("choose", "There is nothing to choose right now.", KindWarning, "warning")
		case 1:
			id = active[0].ID
		default:
			return d.respond("choose", "Several decisions are pending. Use: choose <choice id> <option number>", KindWarning, "help")
		}
		num = args[0]
	case 2:
		id, num = args[0], args[1]
	default:
		return d.respond("choose", "Usage: choose [choice id] <option number>", KindWarning, "help")
	}

	n, err := strconv.Atoi(num)
	if err != nil {
		return d.respond("choose", fmt.Sprintf("'%s' is not an option number.", num), KindError, "error")
	}
	res, err := d.choices.MakeChoice(id, n-1)
	if err != nil {
		return d.respond("choose", err.Error(), KindError, "error")
	}
	return d.plain(strings.Join([]string{"> You chose: " + res.Record.Option.Text, res.Response, res.Commentary}, "\n"), KindSuccess)
}
