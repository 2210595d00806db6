package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"sburbterm/internal/game/narrative"
	"sburbterm/internal/gameerr"
	"sburbterm/internal/observability"
	"sburbterm/internal/persistence"
)

// BookPageCount is how many recent pages "book" shows.
const BookPageCount = 5

func runHelp(_ context.Context, d *Dispatcher, args []string) Response {
	if len(args) > 0 {
		name := strings.ToLower(args[0])
		v, ok := d.Lookup(name)
		if !ok {
			return d.respond("help", fmt.Sprintf("No help available for '%s'.", name), KindWarning, "warning")
		}
		lines := []string{
			"Command: " + v.Name,
			"Description: " + v.Description,
			"Usage: " + v.Usage,
			"Category: " + v.Category,
		}
		if len(v.Aliases) > 0 {
			lines = append(lines, "Aliases: "+strings.Join(v.Aliases, ", "))
		}
		return d.plain(strings.Join(lines, "\n"), KindInfo)
	}

	byCategory := make(map[string][]Verb)
	for _, v := range d.Verbs() {
		byCategory[v.Category] = append(byCategory[v.Category], v)
	}
	var b strings.Builder
	b.WriteString(d.voice("Available commands in the cosmic interface:", "help"))
	b.WriteString("\n\n")
	categories := slices.Clone(categoryOrder)
	for c := range byCategory {
		if !slices.Contains(categories, c) {
			categories = append(categories, c)
		}
	}
	for _, c := range categories {
		verbs := byCategory[c]
		if len(verbs) == 0 {
			continue
		}
		b.WriteString(strings.ToUpper(c) + ":\n")
		for _, v := range verbs {
			fmt.Fprintf(&b, "  %s - %s\n", v.Name, v.Description)
		}
		b.WriteString("\n")
	}
	if calls := d.echoes.CallFiles(); len(calls) > 0 {
		b.WriteString("CALL FILES:\n")
		for _, cf := range calls {
			fmt.Fprintf(&b, "  %s - %s\n", cf.Command, cf.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString(`Type "help [command]" for detailed information about a specific command.`)
	return d.plain(b.String(), KindInfo)
}

func (d *Dispatcher) narrativeLength() narrative.Length {
	switch l := narrative.Length(d.store.Settings().NarrativeLength); l {
	case narrative.Short, narrative.Medium, narrative.Long:
		return l
	}
	return narrative.Medium
}

func runStory(_ context.Context, d *Dispatcher, args []string) Response {
	theme := strings.Join(args, " ")
	if theme == "" {
		theme = "general"
	}
	text := d.narrator.GenerateNarrative(d.lands.CurrentLandName(), theme, narrative.Long)
	return d.respond("story", "A tale unfolds: "+text, KindSuccess, "discovery")
}

func runBook(_ context.Context, d *Dispatcher, _ []string) Response {
	book := d.store.Book()
	if len(book) == 0 {
		return d.respond("book", "The Book of Numbers is empty. Your story has yet to be written.", KindInfo, "info")
	}
	recent := book[max(0, len(book)-BookPageCount):]
	lines := make([]string, 0, len(recent))
	for _, e := range recent {
		lines = append(lines, fmt.Sprintf("[%s] %s", e.Timestamp.Format("15:04:05"), e.Title))
	}
	head := d.voice(fmt.Sprintf("The Book of Numbers contains %d entries. Recent entries:", len(book)), "info")
	return d.plain(head+"\n\n"+strings.Join(lines, "\n"), KindInfo)
}

func runLore(ctx context.Context, d *Dispatcher, args []string) Response {
	topic := strings.Join(args, " ")
	if topic == "" {
		topic = "paradox space"
	}
	if d.oracle != nil {
		p := d.store.Player()
		gameCtx := map[string]any{"player.level": p.Level}
		if p.Classpect != "" {
			gameCtx["player.classpect"] = p.Classpect
		}
		if name := d.lands.CurrentLandName(); name != "" {
			gameCtx["land"] = name
		}
		text, err := d.oracle.Lore(observability.WithGameContext(ctx, gameCtx), topic)
		if err == nil && text != "" {
			d.store.AddBookEntry("Lore: "+topic, text, "lore")
			return d.respond("lore", text, KindInfo, "mystery")
		}
		if err != nil {
			d.log.Printf("commands: lore oracle failed, using local chains: %v", err)
		}
	}
	text := d.narrator.ContextualResponse(topic)
	return d.respond("lore", fmt.Sprintf("Lore about %s: %s", topic, text), KindInfo, "mystery")
}

func runSave(ctx context.Context, d *Dispatcher, _ []string) Response {
	if d.session == nil {
		return d.respond("save", "There is nowhere to keep your progress in this session.", KindWarning, "warning")
	}
	if err := d.session.Save(ctx); err != nil {
		d.log.Printf("commands: save failed: %v", err)
		return d.respond("save", "Save failed. The cosmic forces resist preservation.", KindError, "error")
	}
	return d.respond("save", "Game saved successfully. Your progress persists across the timelines.", KindSuccess, "info")
}

func runLoad(ctx context.Context, d *Dispatcher, _ []string) Response {
	if d.session == nil {
		return d.respond("load", "There is nothing to restore in this session.", KindWarning, "warning")
	}
	err := d.session.Load(ctx)
	switch {
	case err == nil:
		return d.respond("load", "Game loaded successfully. The timeline restores itself.", KindSuccess, "info")
	case errors.Is(err, persistence.ErrNoSave):
		return d.respond("load", "Load failed. Perhaps there's nothing to restore?", KindWarning, "warning")
	case gameerr.CodeOf(err) == gameerr.CodeIncompatibleSave:
		return d.respond("load", "That save belongs to another timeline. The session begins anew.", KindWarning, "warning")
	default:
		d.log.Printf("commands: load failed: %v", err)
		return d.respond("load", "Load failed. The timeline refuses to restore.", KindError, "error")
	}
}

func runReset(_ context.Context, d *Dispatcher, _ []string) Response {
	if d.session != nil {
		d.session.Reset()
	} else {
		d.store.Reset()
		d.choices.Reset()
		d.echoes.Reset()
		d.lands.Reset()
	}
	return d.respond("reset", "Session reset. The timeline begins anew.", KindWarning, "warning")
}
