package synth

import "SignalSmith/internal/domain/models"

type patternEntry struct {
	name        string
	description string
}

var patternCatalog = []patternEntry{
	{"Bullish Engulfing", "A large green candle fully engulfs the previous red candle, hinting at a reversal to the upside."},
	{"Bearish Engulfing", "A large red candle fully engulfs the previous green candle, hinting at a reversal to the downside."},
	{"Hammer", "Small body near the top with a long lower wick; buyers rejected lower prices."},
	{"Shooting Star", "Small body near the bottom with a long upper wick; sellers rejected higher prices."},
	{"Doji", "Open and close are nearly equal, signalling indecision between buyers and sellers."},
	{"Morning Star", "Three-candle bottom formation where a small-bodied candle is followed by a strong green close."},
	{"Evening Star", "Three-candle top formation where a small-bodied candle is followed by a strong red close."},
	{"Three White Soldiers", "Three consecutive long green candles closing near their highs."},
	{"Three Black Crows", "Three consecutive long red candles closing near their lows."},
	{"Bullish Harami", "A small green body contained within the previous red body; selling pressure is fading."},
}

type momentumEntry struct {
	trend    string
	analysis string
	bias     models.Regime
}

var momentumCatalog = []momentumEntry{
	{"Strong Uptrend", "Higher highs and higher lows with expanding volume; buyers are in control.", models.RegimeBullish},
	{"Weak Uptrend", "Price drifts higher but momentum is fading and pullbacks are getting deeper.", models.RegimeBullish},
	{"Sideways", "Price is ranging between well-defined levels with no clear directional pressure.", models.RegimeNeutral},
	{"Consolidation", "Volatility is compressing; a breakout in either direction is building up.", models.RegimeNeutral},
	{"Weak Downtrend", "Lower highs are forming but sellers lack conviction on the breakdowns.", models.RegimeBearish},
	{"Strong Downtrend", "Lower lows with heavy sell volume; rallies are being sold aggressively.", models.RegimeBearish},
}

type regimeRanges struct {
	rsi    [2]float64
	adx    [2]float64
	offset [2]float64
	long   [2]float64
}

var ranges = map[models.Regime]regimeRanges{
	models.RegimeBullish: {rsi: [2]float64{55, 80}, adx: [2]float64{25, 50}, offset: [2]float64{1.01, 1.05}, long: [2]float64{55, 75}},
	models.RegimeBearish: {rsi: [2]float64{20, 45}, adx: [2]float64{25, 50}, offset: [2]float64{0.95, 0.99}, long: [2]float64{25, 45}},
	models.RegimeNeutral: {rsi: [2]float64{40, 60}, adx: [2]float64{10, 24}, offset: [2]float64{0.99, 1.01}, long: [2]float64{45, 55}},
}
