package commands

// Categories group verbs in help output.
const (
	CategorySession     = "session"
	CategoryPlayer      = "player"
	CategoryChoices     = "choices"
	CategoryEchoes      = "echoes"
	CategoryExploration = "exploration"
	CategoryLand        = "land"
	CategoryNarrative   = "narrative"
	CategorySystem      = "system"
)

var categoryOrder = []string{
	CategorySession, CategoryPlayer, CategoryChoices, CategoryEchoes,
	CategoryExploration, CategoryLand, CategoryNarrative, CategorySystem,
}

func builtinVerbs() []Verb {
	return []Verb{
		{Name: "help", Aliases: []string{"h", "?"}, Category: CategorySystem, Usage: "help [command]",
			Description: "Show available commands", Run: runHelp},
		{Name: "begin", Aliases: []string{"start"}, Category: CategorySession, Usage: "begin",
			Description: "Begin your session", Run: runBegin},
		{Name: "name", Category: CategoryPlayer, Usage: "name [your name]",
			Description: "Show or set your name", Run: runName},
		{Name: "classpect", Category: CategoryPlayer, Usage: "classpect [class] [aspect]",
			Description: "Discover or set your classpect", Run: runClasspect},
		{Name: "lunar", Aliases: []string{"moon"}, Category: CategoryPlayer, Usage: "lunar",
			Description: "Discover your lunar sway", Run: runLunar},
		{Name: "status", Aliases: []string{"st", "check"}, Category: CategoryPlayer, Usage: "status",
			Description: "Show your current status", Run: runStatus},
		{Name: "inventory", Aliases: []string{"i", "items"}, Category: CategoryPlayer, Usage: "inventory",
			Description: "Show your inventory", Run: runInventory},
		{Name: "choices", Aliases: []string{"c"}, Category: CategoryChoices, Usage: "choices",
			Description: "List the decisions awaiting you", Run: runChoices},
		{Name: "choose", Aliases: []string{"pick"}, Category: CategoryChoices, Usage: "choose [choice id] <option number>",
			Description: "Resolve a pending choice", Run: runChoose},
		{Name: "echoes", Aliases: []string{"powers", "abilities"}, Category: CategoryEchoes, Usage: "echoes [all]",
			Description: "List active echoes, or the whole catalog", Run: runEchoes},
		{Name: "activate", Category: CategoryEchoes, Usage: "activate <echo>",
			Description: "Activate an echo", Run: runActivate},
		{Name: "deactivate", Category: CategoryEchoes, Usage: "deactivate <echo>",
			Description: "Deactivate an echo", Run: runDeactivate},
		{Name: "use", Category: CategoryEchoes, Usage: "use <echo> [context]",
			Description: "Use an active echo", Run: runUse},
		{Name: "generate", Category: CategoryEchoes, Usage: "generate [fan|developer|temporal|random]",
			Description: "Generate a new echo", Run: runGenerate},
		{Name: "mutate", Category: CategoryEchoes, Usage: "mutate <echo>",
			Description: "Mutate an echo into a variant", Run: runMutate},
		{Name: "land", Aliases: []string{"land_info"}, Category: CategoryLand, Usage: "land",
			Description: "Describe your land", Run: runLand},
		{Name: "look", Aliases: []string{"l", "examine"}, Category: CategoryExploration, Usage: "look",
			Description: "Look around your surroundings", Run: runLook},
		{Name: "explore", Aliases: []string{"e"}, Category: CategoryExploration, Usage: "explore [area]",
			Description: "Explore your land", Run: runExplore},
		{Name: "map", Aliases: []string{"m"}, Category: CategoryExploration, Usage: "map",
			Description: "Show the map of your land", Run: runMap},
		{Name: "quest", Aliases: []string{"q", "quest_status"}, Category: CategoryLand, Usage: "quest",
			Description: "Show your quest progress", Run: runQuest},
		{Name: "consorts", Category: CategoryLand, Usage: "consorts",
			Description: "Describe the consorts of your land", Run: runConsorts},
		{Name: "story", Aliases: []string{"tell", "narrate"}, Category: CategoryNarrative, Usage: "story [theme]",
			Description: "Hear a tale", Run: runStory},
		{Name: "book", Aliases: []string{"archive", "log", "history"}, Category: CategoryNarrative, Usage: "book",
			Description: "Read recent pages of the Book of Numbers", Run: runBook},
		{Name: "lore", Category: CategoryNarrative, Usage: "lore [topic]",
			Description: "Ask about the lore of paradox space", Run: runLore},
		{Name: "save", Category: CategorySystem, Usage: "save",
			Description: "Save your game", Run: runSave},
		{Name: "load", Category: CategorySystem, Usage: "load",
			Description: "Load your saved game", Run: runLoad},
		{Name: "reset", Category: CategorySystem, Usage: "reset",
			Description: "Reset the session", Run: runReset},
	}
}
