package composer

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"SignalSmith/internal/domain/models"
	applogger "SignalSmith/pkg/logger"
	"SignalSmith/pkg/util"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultEpsilonFraction = 0.001

	// maxZoneDrift bounds a proposed entry zone when the bundle has no usable watch range.
	maxZoneDrift = 0.1

	// extraDecimals bounds how many digits formatOrdered may add past the price's own precision.
	extraDecimals = 6
)

// DefaultHalfWidths is the entry zone half-width per risk tier, as a fraction of price.
var DefaultHalfWidths = map[models.RiskRating]float64{
	models.RiskLow:    0.0025,
	models.RiskMedium: 0.005,
	models.RiskHigh:   0.01,
}

// Input is everything the composer needs for one signal.
type Input struct {
	Symbol          string
	Proposal        models.Proposal
	Bundle          models.IndicatorBundle
	RiskLevel       models.RiskRating
	Sentiment       string
	Interpretations map[string]string
}

// Option configures Composer.
type Option func(*Composer)

// WithEpsilon sets the minimum gap between the entry zone and stop/target, as a fraction of price.
func WithEpsilon(fraction float64) Option {
	return func(c *Composer) {
		if fraction > 0 {
			c.epsilon = fraction
		}
	}
}

// WithHalfWidths overrides the derived entry zone half-width per risk tier.
func WithHalfWidths(low, medium, high float64) Option {
	return func(c *Composer) {
		c.halfWidths = map[models.RiskRating]float64{
			models.RiskLow:    low,
			models.RiskMedium: medium,
			models.RiskHigh:   high,
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		c.now = now
	}
}

// Composer turns a reasoning proposal and an indicator bundle into a Signal whose
// price levels always respect the direction's ordering.
type Composer struct {
	log        *applogger.Logger
	validate   *validator.Validate
	epsilon    float64
	halfWidths map[models.RiskRating]float64
	now        func() time.Time
}

func New(log *applogger.Logger, opts ...Option) *Composer {
	if log == nil {
		log = applogger.Nop()
	}
	c := &Composer{
		log:        log,
		validate:   newValidator(),
		epsilon:    DefaultEpsilonFraction,
		halfWidths: DefaultHalfWidths,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("percent", func(fl validator.FieldLevel) bool {
		return util.IsPercent(fl.Field().String())
	})
	return v
}

// Compose validates the proposal and fills the signal's zones.
func (c *Composer) Compose(in Input) (models.Signal, error) {
	b := in.Bundle
	if math.IsNaN(b.Price) || math.IsInf(b.Price, 0) || b.Price <= 0 {
		return models.Signal{}, &models.InvalidInputError{Field: "price", Reason: "must be greater than 0"}
	}
	if _, ok := c.halfWidths[in.RiskLevel]; !ok {
		return models.Signal{}, &models.ValidationError{Field: "riskLevel", Reason: "must be one of Low, Medium, High"}
	}
	if err := c.validateProposal(in.Proposal); err != nil {
		return models.Signal{}, err
	}

	p := in.Proposal
	sig := models.Signal{
		Symbol:           in.Symbol,
		Price:            b.Price,
		Direction:        p.Direction,
		Confidence:       strings.TrimSpace(p.Confidence),
		RiskRating:       p.RiskRating,
		SentimentSummary: in.Sentiment,
		Disclaimer:       models.Disclaimer,
		Interpretations:  in.Interpretations,
		Regime:           b.Regime,
		Seed:             b.Seed,
		GeneratedAt:      c.now(),
	}
	if sig.RiskRating == "" {
		sig.RiskRating = in.RiskLevel
	}
	if sig.SentimentSummary == "" {
		sig.SentimentSummary = p.SentimentSummary
	}
	if sig.Interpretations == nil {
		sig.Interpretations = p.Interpretations
	}

	var err error
	switch p.Direction {
	case models.DirectionHold:
		err = c.composeHold(&sig, b)
	case models.DirectionBuy, models.DirectionSell:
		err = c.composeTrade(&sig, in)
	}
	if err != nil {
		return models.Signal{}, err
	}
	return sig, nil
}

func (c *Composer) validateProposal(p models.Proposal) error {
	err := c.validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &models.ValidationError{Field: fe.Field(), Reason: reasonFor(fe)}
	}
	return &models.ValidationError{Field: "proposal", Reason: err.Error()}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "percent":
		return fmt.Sprintf("%q is not a percentage between 0%% and 100%%", fe.Value())
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// composeHold emits the support/resistance watch range with no stop or target.
func (c *Composer) composeHold(sig *models.Signal, b models.IndicatorBundle) error {
	if !(b.Support < b.Resistance) {
		return &models.InconsistentDirectionError{
			Direction: models.DirectionHold,
			Detail:    fmt.Sprintf("watch range is empty: support %v, resistance %v", b.Support, b.Resistance),
		}
	}
	strs, ok := formatOrdered(b.Price, b.Support, b.Resistance)
	if !ok {
		return &models.InconsistentDirectionError{Direction: models.DirectionHold, Detail: "watch range too narrow to print"}
	}
	sig.Levels = models.Levels{EntryLow: b.Support, EntryHigh: b.Resistance}
	sig.EntryZone = strs[0] + " - " + strs[1]
	return nil
}

func (c *Composer) composeTrade(sig *models.Signal, in Input) error {
	b, p := in.Bundle, in.Proposal
	dir := p.Direction
	eps := c.epsilon * b.Price

	low, high := c.entryZone(sig, b, in.RiskLevel, p)
	if !(low < high) {
		return &models.InconsistentDirectionError{
			Direction: dir,
			Detail:    fmt.Sprintf("entry zone %v - %v is degenerate or inverted", low, high),
		}
	}

	var stop, target float64
	if dir == models.DirectionBuy {
		stop = c.clamp(sig, "stopLoss", orDefault(p.StopLoss, b.Support), low-eps, math.Min, "below entry zone")
		target = c.clamp(sig, "takeProfit", orDefault(p.TakeProfit, b.Resistance), high+eps, math.Max, "above entry zone")
	} else {
		stop = c.clamp(sig, "stopLoss", orDefault(p.StopLoss, b.Resistance), high+eps, math.Max, "above entry zone")
		target = c.clamp(sig, "takeProfit", orDefault(p.TakeProfit, b.Support), low-eps, math.Min, "below entry zone")
	}

	if stop <= 0 || target <= 0 {
		return &models.InconsistentDirectionError{
			Direction: dir,
			Detail:    fmt.Sprintf("clamped levels are not positive: stop %v, target %v", stop, target),
		}
	}
	if !ordered(dir, low, high, stop, target) {
		return &models.InconsistentDirectionError{
			Direction: dir,
			Detail:    fmt.Sprintf("levels out of order: entry %v - %v, stop %v, target %v", low, high, stop, target),
		}
	}

	lo, hi := stop, target
	if dir == models.DirectionSell {
		lo, hi = target, stop
	}
	strs, ok := formatOrdered(b.Price, lo, low, high, hi)
	if !ok {
		return &models.InconsistentDirectionError{
			Direction: dir,
			Detail:    fmt.Sprintf("entry zone %v - %v too narrow to print", low, high),
		}
	}

	sig.Levels = models.Levels{EntryLow: low, EntryHigh: high, StopLoss: &stop, TakeProfit: &target}
	sig.EntryZone = strs[1] + " - " + strs[2]
	if dir == models.DirectionBuy {
		sig.StopLoss, sig.TakeProfit = strs[0], strs[3]
	} else {
		sig.TakeProfit, sig.StopLoss = strs[0], strs[3]
	}
	return nil
}

// entryZone uses the proposed zone when both edges are present and it lies inside the
// anchor window, otherwise derives one around price from the risk tier. Degenerate or
// inverted zones are returned as proposed so the caller rejects them.
func (c *Composer) entryZone(sig *models.Signal, b models.IndicatorBundle, risk models.RiskRating, p models.Proposal) (float64, float64) {
	price := b.Price
	hw := c.halfWidths[risk] * price
	if p.EntryLow != nil && p.EntryHigh != nil {
		low, high := *p.EntryLow, *p.EntryHigh
		if !(low < high) {
			return low, high
		}
		wlo, whi := anchorWindow(b)
		if low >= wlo && high <= whi {
			return low, high
		}
		c.correct(sig, "entryZone", util.FormatZone(low, high), price-hw, "outside "+util.FormatZone(wlo, whi)+", derived from price")
		return price - hw, price + hw
	}
	if p.EntryLow != nil || p.EntryHigh != nil {
		c.correct(sig, "entryZone", "incomplete proposal", price-hw, "derived from price")
	}
	return price - hw, price + hw
}

// anchorWindow is the band a proposed entry zone must sit in: the watch range when it
// brackets price, otherwise price plus or minus maxZoneDrift.
func anchorWindow(b models.IndicatorBundle) (float64, float64) {
	if b.Support > 0 && b.Support < b.Price && b.Price < b.Resistance {
		return b.Support, b.Resistance
	}
	return b.Price * (1 - maxZoneDrift), b.Price * (1 + maxZoneDrift)
}

func (c *Composer) clamp(sig *models.Signal, field string, proposed, bound float64, pick func(float64, float64) float64, rule string) float64 {
	v := pick(proposed, bound)
	if v != proposed {
		c.correct(sig, field, util.FormatPrice(proposed), v, "must sit "+rule)
	}
	return v
}

func (c *Composer) correct(sig *models.Signal, field, from string, to float64, rule string) {
	note := fmt.Sprintf("%s %s -> %s (%s)", field, from, util.FormatPrice(to), rule)
	sig.Corrections = append(sig.Corrections, note)
	c.log.Warn("signal level corrected",
		applogger.String("symbol", sig.Symbol),
		applogger.String("direction", string(sig.Direction)),
		applogger.String("field", field),
		applogger.String("proposed", from),
		applogger.Float64("corrected", to),
	)
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func ordered(dir models.Direction, low, high, stop, target float64) bool {
	if dir == models.DirectionBuy {
		return stop < low && low < high && high < target
	}
	return target < low && low < high && high < stop
}

// formatOrdered formats strictly increasing values so that their printed forms stay
// strictly increasing, adding fraction digits when rounding would collapse neighbours.
func formatOrdered(price float64, vals ...float64) ([]string, bool) {
	out := make([]string, len(vals))
	start := util.PriceDecimals(price)
	for d := start; d <= start+extraDecimals; d++ {
		for i, v := range vals {
			out[i] = util.FormatPriceDecimals(v, d)
		}
		if increasing(out) {
			return out, true
		}
	}
	return nil, false
}

func increasing(strs []string) bool {
	prev := math.Inf(-1)
	for _, s := range strs {
		v, err := util.ParsePrice(s)
		if err != nil || v <= prev {
			return false
		}
		prev = v
	}
	return true
}
