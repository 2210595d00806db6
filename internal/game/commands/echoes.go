package commands

import (
	"context"
	"fmt"
	"strings"

	"sburbterm/internal/game/echo"
)

// resolveEcho accepts an id, a short id ("strife") or a full name. When the
// first word alone does not resolve, the whole argument list is tried as a
// name. The rest of the arguments are returned as free text.
func (d *Dispatcher) resolveEcho(args []string) (echo.Echo, string, bool) {
	if len(args) == 0 {
		return echo.Echo{}, "", false
	}
	if e, ok := d.echoes.Resolve(args[0]); ok {
		return e, strings.Join(args[1:], " "), true
	}
	e, ok := d.echoes.Resolve(strings.Join(args, " "))
	return e, "", ok
}

func runEchoes(_ context.Context, d *Dispatcher, args []string) Response {
	if len(args) > 0 && args[0] == "all" {
		all := d.echoes.All()
		lines := make([]string, 0, len(all))
		for _, e := range all {
			mark := " "
			if d.echoes.IsActive(e.ID) {
				mark = "*"
			}
			lines = append(lines, fmt.Sprintf("%s %s (%s)", mark, echo.Describe(e), e.ID))
		}
		head := d.voice(fmt.Sprintf("Every echo known to paradox space (%d):", len(all)), "info")
		return d.plain(head+"\n\n"+strings.Join(lines, "\n"), KindInfo)
	}

	active := d.echoes.Active()
	if len(active) == 0 {
		return d.respond("echoes", "No echoes currently active. The narrative awaits your influence.", KindInfo, "info")
	}
	lines := make([]string, 0, len(active))
	for _, a := range active {
		line := fmt.Sprintf("- %s (%s) - Power: %d - Commands: %s", a.Name, a.Type, a.Power, strings.Join(a.Commands, ", "))
		if left := d.echoes.CooldownRemaining(a.ID); left > 0 {
			line += fmt.Sprintf(" - Cooldown: %d turn(s)", left)
		}
		lines = append(lines, line)
	}
	head := d.voice(fmt.Sprintf("Active echoes resonating in paradox space (%d/%d total):", len(active), len(d.echoes.All())), "info")
	return d.plain(head+"\n\n"+strings.Join(lines, "\n"), KindInfo)
}

func runActivate(_ context.Context, d *Dispatcher, args []string) Response {
	if len(args) == 0 {
		return d.respond("activate", "Specify an echo to activate.", KindWarning, "help")
	}
	e, _, ok := d.resolveEcho(args)
	if !ok {
		return d.respond("activate", fmt.Sprintf("No echo called '%s' exists.", strings.Join(args, " ")), KindError, "error")
	}
	if _, err := d.echoes.Activate(e.ID); err != nil {
		return d.respond("activate", err.Error(), KindError, "error")
	}
	d.store.AddEcho(e.Name)
	return d.respond("activate",
		fmt.Sprintf("%s resonates through paradox space. Commands: %s", e.Name, strings.Join(e.Commands, ", ")),
		KindSuccess, "echo")
}

func runDeactivate(_ context.Context, d *Dispatcher, args []string) Response {
	if len(args) == 0 {
		return d.respond("deactivate", "Specify an echo to deactivate.", KindWarning, "help")
	}
	e, _, ok := d.resolveEcho(args)
	if !ok {
		return d.respond("deactivate", fmt.Sprintf("No echo called '%s' exists.", strings.Join(args, " ")), KindError, "error")
	}
	if err := d.echoes.Deactivate(e.ID); err != nil {
		return d.respond("deactivate", err.Error(), KindError, "error")
	}
	return d.respond("deactivate", fmt.Sprintf("%s falls silent.", e.Name), KindSuccess, "info")
}

func runUse(_ context.Context, d *Dispatcher, args []string) Response {
	if len(args) == 0 {
		return d.respond("use", "Specify an echo to use.", KindWarning, "help")
	}
	e, note, ok := d.resolveEcho(args)
	if !ok {
		return d.respond("use", fmt.Sprintf("No echo called '%s' exists.", strings.Join(args, " ")), KindError, "error")
	}
	res, err := d.echoes.Use(e.ID, note)
	if err != nil {
		return d.respond("use", err.Error(), KindError, "error")
	}
	return d.respond("use", res.Message, KindSuccess, "echo")
}

func runGenerate(_ context.Context, d *Dispatcher, args []string) Response {
	kind := echo.KindRandom
	if len(args) > 0 {
		kind = args[0]
	}
	e := d.echoes.Generate(kind, d.store.Player().Classpect)
	return d.respond("generate", fmt.Sprintf("New echo generated: %s (%s)", e.Name, e.Type), KindSuccess, "echo")
}

func runMutate(_ context.Context, d *Dispatcher, args []string) Response {
	if len(args) == 0 {
		return d.respond("mutate", "Specify an echo to mutate.", KindWarning, "help")
	}
	e, _, ok := d.resolveEcho(args)
	if !ok {
		return d.respond("mutate", fmt.Sprintf("No echo called '%s' exists.", strings.Join(args, " ")), KindError, "error")
	}
	m, err := d.echoes.Mutate(e.ID)
	if err != nil {
		return d.respond("mutate", err.Error(), KindError, "error")
	}
	return d.respond("mutate", fmt.Sprintf("%s twists into %s (power %d).", e.Name, m.Name, m.Power), KindSuccess, "echo")
}
