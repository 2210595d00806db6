package commands

import (
	"context"
	"fmt"
	"strings"

	"sburbterm/internal/game"
	"sburbterm/internal/game/land"
	"sburbterm/internal/game/narrative"
)

// SessionStartChoice is the template presented shortly after "begin".
const SessionStartChoice = "session_start"

var swayDescriptions = map[string]string{
	game.LunarProspit: "You are a dreamer of the golden city, optimistic and creative.",
	game.LunarDerse:   "You are a dreamer of the purple moon, skeptical and rebellious.",
}

func runBegin(_ context.Context, d *Dispatcher, _ []string) Response {
	if d.store.Session().ID != "" {
		return d.respond("begin", "Your session is already active, player. The wheels are already in motion.", KindInfo, "info")
	}
	d.store.StartSession()

	if _, ok := d.lands.Current(); !ok {
		if err := d.enterNewLand(); err != nil {
			d.log.Printf("commands: begin could not generate a land: %v", err)
		}
	}

	if d.sched != nil {
		gen := d.sched.Generation()
		d.sched.After(d.beginDelay, func() {
			if d.sched.Generation() != gen {
				return
			}
			if _, err := d.choices.PresentTemplate(SessionStartChoice, SessionStartChoice); err != nil {
				d.log.Printf("commands: opening choice: %v", err)
			}
		})
	}

	return d.respond("begin",
		"Session initiated! The cosmic dance begins. Your journey through paradox space starts now. But first, we need to see how you approach this cosmic game...",
		KindSuccess, "session")
}

// enterNewLand generates a land shaped by the player's aspect and moves the
// player there.
func (d *Dispatcher) enterNewLand() error {
	var interests []string
	if _, aspect, ok := narrative.ParseClasspect(d.store.Player().Classpect); ok {
		interests = append(interests, strings.ToLower(aspect))
	}
	l, err := d.lands.Generate(interests)
	if err != nil {
		return err
	}
	if err := d.lands.SetCurrent(l.ID); err != nil {
		return err
	}
	d.store.SetCurrentLand(l.ID)
	return nil
}

func runName(_ context.Context, d *Dispatcher, args []string) Response {
	if len(args) == 0 {
		name := d.store.Player().Name
		if name == "" {
			name = "Unknown"
		}
		return d.respond("name", fmt.Sprintf("Your name is %s.", name), KindInfo, "info")
	}
	name := strings.Join(args, " ")
	d.store.SetName(name)
	return d.respond("name", fmt.Sprintf("Excellent choice, %s. Names have power in paradox space.", name), KindSuccess, "player")
}

func runClasspect(_ context.Context, d *Dispatcher, args []string) Response {
	switch {
	case len(args) == 0:
		if cp := d.store.Player().Classpect; cp != "" {
			return d.respond("classpect", fmt.Sprintf("You are the %s.", cp), KindInfo, "info")
		}
		cp := d.narrator.GenerateClasspect()
		if cp.Full == "" {
			return d.respond("classpect", "The cosmic forces are silent. No classpect could be revealed.", KindWarning, "mystery")
		}
		d.store.SetClasspect(cp.Full)
		return d.respond("classpect",
			fmt.Sprintf("The cosmic forces reveal your true nature: %s. %s.", cp.Full, cp.Description),
			KindSuccess, "awakening")
	case len(args) >= 2:
		full := fmt.Sprintf("%s of %s", land.Label(args[0]), land.Label(args[1]))
		d.store.SetClasspect(full)
		return d.respond("classpect",
			fmt.Sprintf("Your classpect has been set to %s. The universe acknowledges your choice.", full),
			KindSuccess, "player")
	default:
		return d.respond("classpect", `Usage: classpect [class] [aspect] or just "classpect" to discover yours.`, KindInfo, "help")
	}
}

func runLunar(_ context.Context, d *Dispatcher, _ []string) Response {
	if sway := d.store.Player().LunarSway; sway != "" {
		return d.respond("lunar", fmt.Sprintf("Your lunar sway is %s.", sway), KindInfo, "info")
	}
	sway := d.narrator.GenerateLunarSway()
	d.store.SetLunarSway(sway)
	return d.respond("lunar", strings.TrimSpace(fmt.Sprintf("Your lunar sway is %s. %s", sway, swayDescriptions[sway])),
		KindSuccess, "awakening")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func runStatus(_ context.Context, d *Dispatcher, _ []string) Response {
	p := d.store.Player()
	session := "Inactive"
	if d.store.Session().ID != "" {
		session = "Active"
	}
	lines := []string{
		"Name: " + orDefault(p.Name, "Unknown"),
		"Classpect: " + orDefault(p.Classpect, "Unawakened"),
		"Lunar Sway: " + orDefault(p.LunarSway, "Undetermined"),
		fmt.Sprintf("HP: %d/%d", p.HP, p.MaxHP),
		fmt.Sprintf("Level: %d", p.Level),
		fmt.Sprintf("Experience: %d/%d", p.Experience, game.LevelThreshold(p.Level)),
		"Session: " + session,
		fmt.Sprintf("Active Echoes: %d/%d", len(d.echoes.Active()), d.echoes.Limit()),
	}
	if name := d.lands.CurrentLandName(); name != "" {
		lines = append(lines, "Land: "+name)
	}
	head := d.voice("Here's your current status in the grand cosmic game:", "info")
	return d.plain(head+"\n\n"+strings.Join(lines, "\n"), KindInfo)
}

func runInventory(_ context.Context, d *Dispatcher, _ []string) Response {
	p := d.store.Player()
	if len(p.Inventory) == 0 {
		return d.respond("inventory", "Your inventory is as empty as the void between stars.", KindInfo, "info")
	}
	lines := make([]string, 0, len(p.Inventory))
	for _, item := range p.Inventory {
		lines = append(lines, "- "+item.Name)
	}
	return d.plain(d.voice("Your inventory contains:", "info")+"\n\n"+strings.Join(lines, "\n"), KindInfo)
}
