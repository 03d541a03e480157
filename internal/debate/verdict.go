package debate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/podiumlabs/podium/internal/core"
)

// drawMargin is the score difference within which the result is a draw
// when the judge did not name a winner explicitly.
const drawMargin = 5

var (
	proScoreRe = regexp.MustCompile(`(?im)^\s*pro\s*score\s*:?\s*(\d{1,3})`)
	conScoreRe = regexp.MustCompile(`(?im)^\s*con\s*score\s*:?\s*(\d{1,3})`)
	winnerRe   = regexp.MustCompile(`(?im)^\s*winner\s*:?\s*(pro|con|draw|tie)`)

	// Looser patterns for judges that ignore the requested format,
	// e.g. "Pro: 85 points" buried in prose.
	proLooseRe = regexp.MustCompile(`(?i)pro[\s\w]*?:?\s*(\d{1,3})\s*(?:/|out of|points?)`)
	conLooseRe = regexp.MustCompile(`(?i)con[\s\w]*?:?\s*(\d{1,3})\s*(?:/|out of|points?)`)
)

// ParseVerdict extracts a Verdict from the scorekeeper's raw response.
// It tolerates a fair amount of formatting drift but returns an error
// when no scores can be found at all; callers treat that as non-fatal.
func ParseVerdict(raw string) (*core.Verdict, error) {
	proScore, okPro := findScore(raw, proScoreRe, proLooseRe)
	conScore, okCon := findScore(raw, conScoreRe, conLooseRe)
	if !okPro || !okCon {
		return nil, fmt.Errorf("no scores found in scorekeeper response")
	}
	if proScore > 100 || conScore > 100 {
		return nil, fmt.Errorf("scores out of range: pro=%d con=%d", proScore, conScore)
	}

	winner := deriveWinner(proScore, conScore)
	if m := winnerRe.FindStringSubmatch(raw); m != nil {
		switch strings.ToLower(m[1]) {
		case "pro":
			winner = core.WinnerPro
		case "con":
			winner = core.WinnerCon
		default:
			winner = core.WinnerDraw
		}
	}

	return &core.Verdict{
		Winner:    winner,
		Rationale: strings.TrimSpace(raw),
		Scores: map[core.Role]int{
			core.RolePro: proScore,
			core.RoleCon: conScore,
		},
	}, nil
}

func findScore(raw string, strict, loose *regexp.Regexp) (int, bool) {
	m := strict.FindStringSubmatch(raw)
	if m == nil {
		m = loose.FindStringSubmatch(raw)
	}
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func deriveWinner(pro, con int) core.Winner {
	diff := pro - con
	if diff < 0 {
		diff = -diff
	}
	if diff <= drawMargin {
		return core.WinnerDraw
	}
	if pro > con {
		return core.WinnerPro
	}
	return core.WinnerCon
}
