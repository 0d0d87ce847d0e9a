package router

// referencePrompts is the small labelled set used to seed each tier's
// centroid at startup (spec §4.2 "Classifier"). Wording favors short,
// unambiguous examples of the kind of request each tier should absorb.
var referencePrompts = map[string][]string{
	"simple": {
		"what is the capital of france",
		"convert 10 miles to kilometers",
		"say hello in spanish",
		"what time zone is tokyo in",
		"spell the word necessary",
		"give me a synonym for happy",
	},
	"complex": {
		"refactor this function to remove the duplicate error handling",
		"write a plan for migrating our database from mysql to postgres",
		"review this pull request and list any bugs",
		"summarize the attached log file and point out anomalies",
		"draft an email to a client explaining a delayed shipment",
		"compare these two approaches and recommend one",
	},
	"reasoning": {
		"prove that the square root of two is irrational",
		"walk through the tradeoffs of this distributed consensus protocol",
		"debug why this concurrent program deadlocks, step by step",
		"design a database schema that satisfies these five constraints",
		"solve this combinatorics problem and show your work",
		"work out the time complexity of this recursive algorithm",
	},
	"free": {
		"tell me a joke",
		"what's a fun fact about octopuses",
		"suggest a name for my cat",
		"write a short haiku about rain",
	},
}

// fallbackOrder is the fallback walk used when a chosen tier's candidate list
// is empty (spec §4.2 step 2): "[requested, complex, reasoning, simple]".
func fallbackOrder(requested string) []string {
	order := []string{requested, "complex", "reasoning", "simple"}
	seen := make(map[string]bool, len(order))
	out := make([]string, 0, len(order))
	for _, t := range order {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
