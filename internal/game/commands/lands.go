package commands

import (
	"context"
	"fmt"
	"strings"

	"sburbterm/internal/game"
	"sburbterm/internal/game/land"
)

func runLand(_ context.Context, d *Dispatcher, _ []string) Response {
	l, ok := d.lands.Current()
	if !ok {
		return d.respond("land", "You exist in the void between lands. Begin your session to manifest your realm.", KindWarning, "mystery")
	}
	names := make([]string, 0, len(l.Consorts))
	for _, c := range l.Consorts {
		names = append(names, c.Name)
	}
	info := []string{
		"Name: " + l.Name,
		"Themes: " + strings.Join(l.Themes, ", "),
		"Description: " + l.Description,
		"Consorts: " + strings.Join(names, ", "),
		fmt.Sprintf("Exploration: %d%%", l.Explored.Percentage),
		"Quest: " + l.Quest.Title,
		"Denizen: " + l.Denizen.Name,
	}
	return d.plain(d.voice("Your land awaits your exploration:", "info")+"\n\n"+strings.Join(info, "\n"), KindInfo)
}

func runLook(_ context.Context, d *Dispatcher, _ []string) Response {
	l, ok := d.lands.Current()
	if !ok {
		return d.respond("look", "You find yourself in the void between worlds. Perhaps you should begin your session?", KindWarning, "mystery")
	}
	text := d.narrator.GenerateNarrative("looking around "+l.Name, "discovery", d.narrativeLength())
	return d.respond("look",
		fmt.Sprintf("You survey %s. %s The %s themes permeate everything here.", l.Name, text, strings.Join(l.Themes, ", ")),
		KindSuccess, "exploration")
}

func runExplore(_ context.Context, d *Dispatcher, args []string) Response {
	l, ok := d.lands.Current()
	if !ok {
		return d.respond("explore", "There's nothing to explore in the void. Start your session first.", KindWarning, "warning")
	}
	area := strings.Join(args, "_")
	ex, err := d.lands.Explore(l.ID, area)
	if err != nil {
		return d.respond("explore", err.Error(), KindError, "error")
	}
	d.store.ApplyStat(game.StatExperience, ex.Experience)
	for _, r := range ex.Resources {
		d.store.AddItem(game.Item{Name: land.Label(r), Kind: "resource"})
	}
	msg := fmt.Sprintf("Exploration yields results: %s (+%d experience, %d%% explored)", ex.Narrative, ex.Experience, ex.Percentage)
	return d.respond("explore", msg, KindSuccess, "discovery")
}

func runMap(_ context.Context, d *Dispatcher, _ []string) Response {
	l, ok := d.lands.Current()
	if !ok {
		return d.respond("map", "No land to map in the void.", KindWarning, "warning")
	}
	section, err := d.lands.MapSection(l.ID, 0, 0, land.MapWidth, land.MapHeight)
	if err != nil {
		return d.respond("map", err.Error(), KindError, "error")
	}
	legend, _ := d.lands.Legend(l.ID)
	head := d.voice(fmt.Sprintf("Behold, the layout of %s:", l.Name), "info")
	return d.plain(head+"\n\n"+section+"\n\n"+strings.Join(legend, "\n"), KindSuccess)
}

func runQuest(_ context.Context, d *Dispatcher, _ []string) Response {
	l, ok := d.lands.Current()
	if !ok {
		return d.respond("quest", "No quest exists in the void. Enter your session first.", KindWarning, "warning")
	}
	q := l.Quest
	info := []string{
		"Quest: " + q.Title,
		fmt.Sprintf("Progress: %d/%d", q.Progress, len(q.Objectives)),
		"Description: " + q.Description,
		"Current Objectives:",
	}
	for i, o := range q.Objectives {
		status := "[PENDING]"
		if i < q.Progress {
			status = "[COMPLETE]"
		}
		info = append(info, fmt.Sprintf("  %s %s", status, o))
	}
	for _, a := range q.ConsortAdvice {
		info = append(info, a.Tips...)
	}
	if q.Completed {
		info = append(info, "The quest is complete.")
	}
	return d.plain(d.voice("Your quest status in the grand narrative:", "info")+"\n\n"+strings.Join(info, "\n"), KindInfo)
}

func runConsorts(_ context.Context, d *Dispatcher, _ []string) Response {
	l, ok := d.lands.Current()
	if !ok {
		return d.respond("consorts", "No consorts exist in the void.", KindWarning, "warning")
	}
	blocks := make([]string, 0, len(l.Consorts))
	for _, c := range l.Consorts {
		blocks = append(blocks, strings.Join([]string{
			"Species: " + c.Name,
			"Description: " + c.Description,
			"Personality: " + c.Personality,
			"Helpfulness: " + c.Helpfulness,
			"Specialties: " + strings.Join(c.Specialties, ", "),
		}, "\n"))
	}
	return d.plain(d.voice("The consorts of your land:", "info")+"\n\n"+strings.Join(blocks, "\n\n"), KindInfo)
}
