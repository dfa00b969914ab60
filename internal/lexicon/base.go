package lexicon

import (
	"regexp"

	"github.com/havenmind/safeguard/internal/domain"
)

type baseCategory struct {
	name    string
	phrases []string
}

// The built-in conservative phrase set. Deliberately biased toward
// over-matching: a false positive costs one extra alert, a false negative
// is unacceptable. Idiomatic uses are filtered by baseExclusions instead
// of being left out of these lists.
var baseCategories = []baseCategory{
	{
		name: domain.CategoryEmergency,
		phrases: []string{
			"kill myself",
			"killing myself",
			"kill",
			"killed",
			"end my life",
			"ending my life",
			"suicide plan",
			"immediate danger",
			"pills in hand",
			"about to jump",
			"loaded gun",
			"tonight is the night",
			"goodbye forever",
		},
	},
	{
		name: domain.CategorySuicide,
		phrases: []string{
			"suicide",
			"suicidal",
			"want to die",
			"wish i was dead",
			"wish i were dead",
			"end it all",
			"better off dead",
			"no reason to live",
			"take my own life",
			"not wake up",
		},
	},
	{
		name: domain.CategorySelfHarm,
		phrases: []string{
			"hurt myself",
			"hurting myself",
			"cut myself",
			"cutting myself",
			"self harm",
			"self-harm",
			"burn myself",
			"punish myself",
		},
	},
	{
		name: domain.CategorySevereDepression,
		phrases: []string{
			"hopeless",
			"worthless",
			"unbearable",
			"can't go on",
			"cannot go on",
			"no way out",
			"nothing matters anymore",
			"everyone would be better without me",
		},
	},
	{
		name: domain.CategoryModerateConcern,
		phrases: []string{
			"depressed",
			"giving up",
			"can't cope",
			"falling apart",
			"so tired of everything",
			"completely alone",
			"empty inside",
		},
	},
}

// Idiomatic and cultural contexts that contain trigger substrings but carry
// no risk. Matching any of these suppresses keyword matches for the text.
var baseExclusions = []*regexp.Regexp{
	regexp.MustCompile(`(?i)killed it`),
	regexp.MustCompile(`(?i)killing it`),
	regexp.MustCompile(`(?i)kill(ing)? time`),
	regexp.MustCompile(`(?i)dressed to kill`),
	regexp.MustCompile(`(?i)killer (deal|app|workout|instinct)`),
	regexp.MustCompile(`(?i)dying to (see|meet|try|go|hear|know)`),
	regexp.MustCompile(`(?i)to die for`),
	regexp.MustCompile(`(?i)dead tired`),
	regexp.MustCompile(`(?i)drop.?dead gorgeous`),
	regexp.MustCompile(`(?i)suicide (squad|doors|prevention)`),
	regexp.MustCompile(`(?i)my (phone|battery|laptop|car) (just )?died`),
}
