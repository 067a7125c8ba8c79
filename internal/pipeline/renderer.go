package pipeline

import (
	"fmt"
	"strings"

	"github.com/ppiankov/evigate/internal/model"
)

// RenderMarkdown produces the human-readable digest of a bundle.
func RenderMarkdown(b *model.Bundle, includeFooter bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Evidence digest: %s\n\n", b.Topic)
	fmt.Fprintf(&sb, "Window: %s · Regime: %s · Confidence: %s\n\n", b.Window, b.Regime, b.Confidence.Display)
	if b.Confidence.Note != "" {
		fmt.Fprintf(&sb, "> %s\n\n", b.Confidence.Note)
	}

	st := b.SourceStats
	fmt.Fprintf(&sb, "## Evidence base\n\n%d sources, %d core, %d domains", st.Total, st.Core, st.UniqueDomains)
	if st.DominantDomain != "" {
		fmt.Fprintf(&sb, " (dominant: %s at %.0f%%)", st.DominantDomain, st.DominantRatio*100)
	}
	sb.WriteString("\n\n")
	for _, check := range st.Checks {
		mark := "ok"
		if !check.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&sb, "- %s: %g/%g %s\n", check.Label, check.Actual, check.Target, mark)
	}
	sb.WriteString("\n")

	if len(b.Signals) > 0 {
		sb.WriteString("## Signals\n\n")
		for _, sig := range b.Signals {
			fmt.Fprintf(&sb, "### %s\n\n%s\n\n", sig.Name, sig.Description)
			fmt.Fprintf(&sb, "Strength %.2f · grade %s · sources %s\n\n", sig.Strength, sig.Grade, citeList(sig.Support))
		}
	}

	if len(b.Appendix) > 0 {
		sb.WriteString("## Appendix (demoted)\n\n")
		for _, sig := range b.Appendix {
			fmt.Fprintf(&sb, "- %s — %s\n", sig.Name, sig.DemotionReason)
		}
		sb.WriteString("\n")
	}

	if b.Quant != nil {
		sb.WriteString("## Quantitative anchors\n\n")
		fmt.Fprintf(&sb, "%s (coverage %.0f%%)\n\n", b.Quant.SpineHook, b.Quant.Coverage*100)
		if b.Quant.Patch != nil {
			for _, eq := range b.Quant.Patch.LatexEquations {
				fmt.Fprintf(&sb, "    %s\n", eq)
			}
			for _, w := range b.Quant.Patch.Warnings {
				fmt.Fprintf(&sb, "- %s: %s\n", w.Code, w.Message)
			}
			sb.WriteString("\n")
		}
	}

	if b.Ledger != nil {
		fmt.Fprintf(&sb, "## Evidence ledger\n\nAnchor coverage: %.0f%% any, %.0f%% strict\n\n",
			b.Ledger.AnchorCoverageAny*100, b.Ledger.AnchorCoverageStrict*100)
		for _, claim := range b.Ledger.Claims {
			fmt.Fprintf(&sb, "- %s: %d anchors", claim.ClaimID, len(claim.Anchors))
			if claim.Overreach {
				sb.WriteString(" (overreach)")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(b.Violations) > 0 {
		sb.WriteString("## Contract violations\n\n")
		for _, v := range b.Violations {
			fmt.Fprintf(&sb, "- %s\n", v)
		}
		sb.WriteString("\n")
	}

	if len(b.VOITasks) > 0 {
		sb.WriteString("## Recommended follow-ups\n\n")
		for _, task := range b.VOITasks {
			fmt.Fprintf(&sb, "- %s\n", task)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Sources\n\n")
	for _, src := range b.Sources {
		fmt.Fprintf(&sb, "%d. [%s](%s) — %s, grade %s, %s/%s\n",
			src.ID, src.Title, src.URL, src.Publisher, src.Grade, src.Role, src.Tier)
	}

	if includeFooter {
		fmt.Fprintf(&sb, "\n---\nGenerated %s by evigate\n", b.GeneratedAt.Format("2006-01-02 15:04 MST"))
	}
	return sb.String()
}

func citeList(ids []int) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("[%d]", id)
	}
	return strings.Join(parts, " ")
}
