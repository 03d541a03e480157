package debate

import (
	"testing"

	"github.com/podiumlabs/podium/internal/core"
)

func TestParseVerdict(t *testing.T) {
	t.Run("WellFormed", func(t *testing.T) {
		raw := `The pro side argued with more rigor throughout.

PRO SCORE: 85
CON SCORE: 72
WINNER: Pro`

		v, err := ParseVerdict(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Winner != core.WinnerPro {
			t.Errorf("Winner mismatch: got %s, want %s", v.Winner, core.WinnerPro)
		}
		if v.Scores[core.RolePro] != 85 || v.Scores[core.RoleCon] != 72 {
			t.Errorf("scores mismatch: got pro=%d con=%d", v.Scores[core.RolePro], v.Scores[core.RoleCon])
		}
		if v.Rationale == "" {
			t.Error("rationale should carry the raw response")
		}
	})

	t.Run("WinnerLineOverridesScores", func(t *testing.T) {
		// Judge named a winner even though the scores say otherwise.
		raw := "PRO SCORE: 60\nCON SCORE: 80\nWINNER: Pro"
		v, err := ParseVerdict(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Winner != core.WinnerPro {
			t.Errorf("Winner mismatch: got %s, want %s", v.Winner, core.WinnerPro)
		}
	})

	t.Run("DerivedWinnerFromScores", func(t *testing.T) {
		cases := []struct {
			name string
			raw  string
			want core.Winner
		}{
			{"ProAhead", "PRO SCORE: 90\nCON SCORE: 70", core.WinnerPro},
			{"ConAhead", "PRO SCORE: 60\nCON SCORE: 88", core.WinnerCon},
			{"WithinMargin", "PRO SCORE: 80\nCON SCORE: 77", core.WinnerDraw},
			{"ExactTie", "PRO SCORE: 75\nCON SCORE: 75", core.WinnerDraw},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				v, err := ParseVerdict(tc.raw)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if v.Winner != tc.want {
					t.Errorf("Winner mismatch: got %s, want %s", v.Winner, tc.want)
				}
			})
		}
	})

	t.Run("TieSpelledOut", func(t *testing.T) {
		v, err := ParseVerdict("PRO SCORE: 80\nCON SCORE: 90\nWINNER: Tie")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Winner != core.WinnerDraw {
			t.Errorf("Winner mismatch: got %s, want %s", v.Winner, core.WinnerDraw)
		}
	})

	t.Run("LooseFormat", func(t *testing.T) {
		raw := "After careful review I award the pro debater: 82 points and the con debater: 74 points overall."
		v, err := ParseVerdict(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Scores[core.RolePro] != 82 {
			t.Errorf("pro score mismatch: got %d, want 82", v.Scores[core.RolePro])
		}
		if v.Scores[core.RoleCon] != 74 {
			t.Errorf("con score mismatch: got %d, want 74", v.Scores[core.RoleCon])
		}
		if v.Winner != core.WinnerPro {
			t.Errorf("Winner mismatch: got %s, want %s", v.Winner, core.WinnerPro)
		}
	})

	t.Run("NoScores", func(t *testing.T) {
		if _, err := ParseVerdict("An excellent debate by both sides; I cannot choose."); err == nil {
			t.Error("expected error for response with no scores")
		}
	})

	t.Run("EmptyResponse", func(t *testing.T) {
		if _, err := ParseVerdict(""); err == nil {
			t.Error("expected error for empty response")
		}
	})

	t.Run("ScoresOutOfRange", func(t *testing.T) {
		if _, err := ParseVerdict("PRO SCORE: 120\nCON SCORE: 95"); err == nil {
			t.Error("expected error for score above 100")
		}
	})
}
