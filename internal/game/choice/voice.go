package choice

var genericResponses = []string{
	"Your decision ripples through paradox space, creating new possibilities.",
	"The echoes of your choice resonate across the narrative threads.",
	"Reality shifts subtly in response to your will.",
	"The game takes note of your decision and adapts accordingly.",
}

var commentary = []string{
	"interesting choice there, player. let's see where this miracle leads us :o)",
	"that's one way to shake up the narrative, i respect that approach",
	"the honk of destiny approves of your decision making skills",
	"now that's what i call playing the game with style!",
	"every choice is a miracle in its own special way",
}

var reputationCommentary = []string{
	"looks like you're making friends... or enemies. either way, it's all miracles",
	"word travels fast in paradox space, somebody out there is keeping score",
}

var injuryCommentary = []string{
	"ouch, that's gonna leave a mark. but pain is just another miracle, right?",
	"you're bleeding a little there, friend. walk it off, the game ain't waiting",
}

// commentaryPool is the sampling set for an option's commentary line.
func commentaryPool(o Option) []string {
	pool := append([]string(nil), commentary...)
	if o.HasReputation() {
		pool = append(pool, reputationCommentary...)
	}
	if o.Injures() {
		pool = append(pool, injuryCommentary...)
	}
	return pool
}
