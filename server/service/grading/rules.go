package grading

import (
	"strings"
)

// gapRule accepts a set of gap answers when one of its cue words appears in
// the question. The cues are conjugated auxiliary and common verb forms, the
// accepted sets the subject pronouns agreeing with them.
type gapRule struct {
	cues     []string
	accepted []string
}

// gapRules is consulted in order; the first rule with a cue present in the
// question wins. Data over conditionals so new agreement patterns are one
// line each.
var gapRules = []gapRule{
	// haben / sein / werden, 1st person singular
	{cues: []string{"habe", "bin", "werde"}, accepted: []string{"ich"}},
	// 2nd person singular
	{cues: []string{"hast", "bist", "wirst"}, accepted: []string{"du"}},
	// 2nd person plural
	{cues: []string{"habt", "seid", "werdet"}, accepted: []string{"ihr"}},
	// 3rd person singular
	{cues: []string{"hat", "ist", "wird"}, accepted: []string{"er", "sie", "es"}},
	// 1st/3rd person plural and formal address share the verb form
	{cues: []string{"haben", "sind", "werden"}, accepted: []string{"wir", "sie"}},
	// regular verb endings
	{cues: []string{"gehe", "komme", "mache", "lerne", "wohne", "spiele"}, accepted: []string{"ich"}},
	{cues: []string{"gehst", "kommst", "machst", "lernst", "wohnst", "spielst"}, accepted: []string{"du"}},
	{cues: []string{"geht", "kommt", "macht", "lernt", "wohnt", "spielt"}, accepted: []string{"er", "sie", "es", "ihr"}},
	{cues: []string{"gehen", "kommen", "machen", "lernen", "wohnen", "spielen"}, accepted: []string{"wir", "sie"}},
}

// acceptedGapAnswers returns the accepted answers for a question, or nil
// when no rule applies.
func acceptedGapAnswers(question string) []string {
	tokens := strings.Fields(strings.ToLower(question))
	present := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		present[strings.Trim(tok, `.,!?;:"'`)] = struct{}{}
	}
	for _, rule := range gapRules {
		for _, cue := range rule.cues {
			if _, ok := present[cue]; ok {
				return rule.accepted
			}
		}
	}
	return nil
}
