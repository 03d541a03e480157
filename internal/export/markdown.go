package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/podiumlabs/podium/internal/core"
)

// MarkdownExporter exports debates to Markdown format.
type MarkdownExporter struct{}

// Export writes the debate as Markdown.
func (e *MarkdownExporter) Export(debate *core.Debate, w io.Writer) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", debate.Topic))

	sb.WriteString("## Debate Information\n\n")
	sb.WriteString(fmt.Sprintf("- **ID:** `%s`\n", debate.ID))
	sb.WriteString(fmt.Sprintf("- **Status:** %s\n", debate.Status))
	sb.WriteString(fmt.Sprintf("- **Pro:** %s\n", debate.ProName))
	sb.WriteString(fmt.Sprintf("- **Con:** %s\n", debate.ConName))
	sb.WriteString(fmt.Sprintf("- **Created:** %s\n", debate.CreatedAt.Format("January 2, 2006 at 3:04 PM")))
	if debate.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("- **Completed:** %s\n", debate.CompletedAt.Format("January 2, 2006 at 3:04 PM")))
		sb.WriteString(fmt.Sprintf("- **Duration:** %s\n", formatDuration(debate.CreatedAt, *debate.CompletedAt)))
	}
	if debate.FailureReason != "" {
		sb.WriteString(fmt.Sprintf("- **Failure reason:** %s\n", debate.FailureReason))
	}
	sb.WriteString("\n")

	sb.WriteString("## Debate\n\n")

	if len(debate.Transcript) == 0 {
		sb.WriteString("*No turns recorded.*\n\n")
	} else {
		for _, turn := range debate.Transcript {
			sb.WriteString(fmt.Sprintf("### Turn %d - %s\n\n", turn.Seq, speakerName(debate, turn.Role)))
			sb.WriteString(fmt.Sprintf("*%s*\n\n", turn.CreatedAt.Format("3:04 PM")))
			sb.WriteString(turn.Content)
			sb.WriteString("\n\n---\n\n")
		}
	}

	if debate.Verdict != nil {
		v := debate.Verdict
		sb.WriteString("## Verdict\n\n")
		sb.WriteString(fmt.Sprintf("- **Winner:** %s\n", v.Winner))
		sb.WriteString(fmt.Sprintf("- **Pro score:** %d\n", v.Scores[core.RolePro]))
		sb.WriteString(fmt.Sprintf("- **Con score:** %d\n\n", v.Scores[core.RoleCon]))
		sb.WriteString(v.Rationale)
		sb.WriteString("\n\n")
	} else if debate.VerdictNote != "" {
		sb.WriteString("## Verdict\n\n")
		sb.WriteString(fmt.Sprintf("*No verdict: %s*\n\n", debate.VerdictNote))
	}

	sb.WriteString("---\n\n")
	sb.WriteString("*Exported from podium*\n")

	_, err := w.Write([]byte(sb.String()))
	return err
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return "md"
}
