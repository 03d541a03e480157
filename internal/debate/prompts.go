package debate

import (
	"fmt"
	"strings"

	"github.com/podiumlabs/podium/internal/core"
)

// promptBuilder constructs the prompt for one role's completion call from
// the debate state accumulated so far.
type promptBuilder func(d *core.Debate) string

// promptBuilders maps each role to its prompt constructor. The role set
// is closed; an unknown role is a programming error.
var promptBuilders = map[core.Role]promptBuilder{
	core.RoleModerator:   moderatorPrompt,
	core.RolePro:         debaterPrompt(core.RolePro),
	core.RoleCon:         debaterPrompt(core.RoleCon),
	core.RoleFactChecker: factCheckerPrompt,
	core.RoleScorekeeper: scorekeeperPrompt,
}

// buildPrompt returns the prompt for the given role and debate state.
func buildPrompt(role core.Role, d *core.Debate) string {
	builder, ok := promptBuilders[role]
	if !ok {
		panic(fmt.Sprintf("no prompt builder for role %q", role))
	}
	return builder(d)
}

// formatTranscript renders the transcript for inclusion in prompts.
func formatTranscript(d *core.Debate) string {
	if len(d.Transcript) == 0 {
		return "The debate has not started yet; there are no previous contributions."
	}
	var b strings.Builder
	for _, t := range d.Transcript {
		name := speakerName(d, t.Role)
		fmt.Fprintf(&b, "\n--- %s (turn %d) ---\n%s\n", name, t.Seq, t.Content)
	}
	return b.String()
}

func speakerName(d *core.Debate, role core.Role) string {
	switch role {
	case core.RolePro:
		return d.ProName
	case core.RoleCon:
		return d.ConName
	case core.RoleModerator:
		return "Moderator"
	case core.RoleFactChecker:
		return "Fact Checker"
	default:
		return string(role)
	}
}

func moderatorPrompt(d *core.Debate) string {
	background := d.Background
	if background == "" {
		background = "No background information is available."
	}
	return fmt.Sprintf(`You are a professional debate moderator. Your role is to introduce a debate topic clearly and neutrally.
Provide a balanced introduction that:
1. Explains the topic
2. Provides context and background information
3. Explains why this topic is important
4. Outlines the key points of contention

Do NOT take any stance on the issue. Remain completely neutral. Your introduction should be concise but informative, around 250-350 words. End with "Let the debate begin."

Topic: "%s"

Background information:
%s`, d.Topic, background)
}

// debaterPrompt returns the prompt builder for one of the two debaters.
// The first turn asks for an opening argument; later turns respond to
// the transcript; the side's final turn is framed as a closing statement.
func debaterPrompt(role core.Role) promptBuilder {
	return func(d *core.Debate) string {
		stance := "pro"
		name := d.ProName
		if role == core.RoleCon {
			stance = "con"
			name = d.ConName
		}

		return fmt.Sprintf(`You are %s, an expert debater taking the %s position on the topic: "%s".

You are participating in a formal debate. Your objective is to present a compelling argument supporting your %s position.

Guidelines:
1. Make clear, logical arguments
2. Use factual evidence to support your points
3. Anticipate and address counterarguments
4. Remain respectful but assertive
5. Be concise but thorough

The debate so far:
%s

Craft a compelling argument of approximately 250-350 words for the %s position.`,
			name, stance, d.Topic, stance, formatTranscript(d), stance)
	}
}

func factCheckerPrompt(d *core.Debate) string {
	return fmt.Sprintf(`You are an impartial fact-checker with expertise in verifying claims made in debates.

Your task is to review the debate below and identify any factual claims that:
1. Are demonstrably false
2. Are misleading or lack important context
3. Misrepresent scientific consensus
4. Contain logical fallacies

Focus only on factual accuracy, not the quality of the arguments or their persuasiveness.
Be specific about which claims are problematic and why.
If a claim is accurate but missing important context, provide that context.
If unsure about a claim, indicate your uncertainty rather than making a definitive judgment.

Topic: "%s"

Debate transcript:
%s`, d.Topic, formatTranscript(d))
}

func scorekeeperPrompt(d *core.Debate) string {
	return fmt.Sprintf(`You are an impartial debate judge with expertise in critical thinking, logical reasoning, and argument analysis.
Your task is to evaluate a debate on the topic: "%s" and determine a winner based on the quality of arguments presented.

Evaluation criteria:
1. Logical reasoning and argument structure (30 points)
2. Use of evidence and factual accuracy (30 points)
3. Addressing counterarguments (20 points)
4. Persuasiveness and clarity (20 points)

For each side (Pro and Con), assign a score out of 100 points based on these criteria.

Debate content:
%s

Provide a detailed evaluation of both sides' arguments, noting strengths and weaknesses.
Then report your result using exactly these lines:
PRO SCORE: <number>
CON SCORE: <number>
WINNER: <Pro, Con, or Draw>`, d.Topic, formatTranscript(d))
}
