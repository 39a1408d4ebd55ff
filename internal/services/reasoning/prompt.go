package reasoning

import (
	"fmt"
	"strings"

	"SignalSmith/internal/domain/models"
	"SignalSmith/pkg/util"
)

const systemPrompt = `You are a cryptocurrency market analyst. You receive synthesized technical indicators
and recent headlines for one asset and answer with a single JSON object, no prose, using exactly these keys:
{
  "direction": "BUY" | "SELL" | "HOLD",
  "confidence": "<0-100>%",
  "riskRating": "Low" | "Medium" | "High",
  "sentimentSummary": "<two sentences on the news tone>",
  "interpretations": {"rsi": "...", "adx": "...", "ema": "...", "vwap": "...", "sar": "...", "bollinger": "...", "longShortRatio": "...", "momentum": "...", "patterns": "..."},
  "entryLow": <number, optional>,
  "entryHigh": <number, optional>,
  "stopLoss": <number, optional>,
  "takeProfit": <number, optional>
}
For BUY the stop loss is below the entry zone and the take profit above it; for SELL the reverse.
For HOLD omit the price levels.`

// BuildUserPrompt renders the indicator bundle and headlines for the model.
func BuildUserPrompt(req models.ReasoningRequest) string {
	b := req.Bundle
	var sb strings.Builder
	fmt.Fprintf(&sb, "Asset: %s\nCurrent price: %s\nTrader risk tolerance: %s\n\n", req.Symbol, util.FormatPrice(b.Price), req.RiskLevel)

	sb.WriteString("Indicators:\n")
	fmt.Fprintf(&sb, "- RSI: %.2f\n", b.RSI)
	fmt.Fprintf(&sb, "- ADX: %.2f\n", b.ADX)
	fmt.Fprintf(&sb, "- EMA: %s\n", util.FormatPrice(b.EMA))
	fmt.Fprintf(&sb, "- VWAP: %s\n", util.FormatPrice(b.VWAP))
	fmt.Fprintf(&sb, "- Parabolic SAR: %s\n", util.FormatPrice(b.SAR))
	fmt.Fprintf(&sb, "- Bollinger bands: %s\n", util.FormatZone(b.Bollinger.Lower, b.Bollinger.Upper))
	fmt.Fprintf(&sb, "- Long/short ratio: %.1f%% / %.1f%%\n", b.LongShortRatio, b.ShortRatio())
	fmt.Fprintf(&sb, "- Support: %s, resistance: %s\n", util.FormatPrice(b.Support), util.FormatPrice(b.Resistance))
	fmt.Fprintf(&sb, "- Volatility index: %.1f\n", b.VolatilityIndex)
	fmt.Fprintf(&sb, "- Momentum: %s (%s)\n", b.Momentum.Trend, b.Momentum.Analysis)
	for _, p := range b.Patterns {
		fmt.Fprintf(&sb, "- Pattern: %s, confidence %.0f%% (%s)\n", p.Name, p.Confidence, p.Description)
	}

	if len(req.News) == 0 {
		sb.WriteString("\nNo recent headlines available.\n")
		return sb.String()
	}
	sb.WriteString("\nRecent headlines:\n")
	for i, n := range req.News {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, n.Title, n.Description, n.URL)
	}
	return sb.String()
}
