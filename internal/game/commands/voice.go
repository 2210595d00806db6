package commands

const narrator = "> GAMZEE H: "

var voicePrefixes = map[string]string{
	"error":       "whoops, ",
	"warning":     "careful now, ",
	"help":        "let me break it down for you, ",
	"mystery":     "curious and curiouser, ",
	"awakening":   "ah, the cosmic truth reveals itself! ",
	"discovery":   "well well, ",
	"session":     "the grand performance begins! ",
	"echo":        "the echoes of paradox space respond! ",
	"info":        "",
	"player":      "",
	"exploration": "",
}

var flavors = []string{
	" :o)",
	" honk honk",
	" *chuckles*",
	" the miracles never end",
	" all according to the grand design",
}

const flavorChance = 0.1

// voice wraps message in the narrator's register for a given mood.
func (d *Dispatcher) voice(message, mood string) string {
	out := narrator + voicePrefixes[mood] + message
	if d.rng != nil && d.rng.Float64() < flavorChance {
		out += flavors[d.rng.Intn(len(flavors))]
	}
	return out
}

func (d *Dispatcher) respond(command, message, kind, mood string) Response {
	return Response{
		Command:   command,
		Message:   d.voice(message, mood),
		Kind:      kind,
		Timestamp: d.clock.Now(),
	}
}

// plain builds a response without the narrator prefix, for tables and maps.
func (d *Dispatcher) plain(message, kind string) Response {
	return Response{Message: message, Kind: kind, Timestamp: d.clock.Now()}
}
