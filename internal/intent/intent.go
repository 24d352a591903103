// Package intent builds the wire-format XML consumed by the Meridian
// execute_intent tool. Building is pure: the same TradeParams always produce
// byte-identical output, nothing is mutated, and the static chain/token
// tables are never written after init. Safe for concurrent use without
// coordination.
package intent

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Action is the trade direction. Exactly two values exist.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
)

// DefaultQuote is the token paid with (buy) or received (sell) when the
// caller does not specify one.
const DefaultQuote = "USDC"

// TradeParams are the caller-supplied inputs to Build. Amount is a decimal
// string, or the literal "all" when selling an entire position.
type TradeParams struct {
	Action     Action
	Base       string
	Quote      string
	Amount     string
	Chain      string
	TakeProfit *float64
	StopLoss   *float64
}

// BuildResult is the wire payload plus a one-line human description.
type BuildResult struct {
	XML     string
	Summary string
}

// ValidationError reports a caller-input problem. Messages are written to be
// surfaced to the end user verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Option tweaks Build behavior.
type Option func(*buildOptions)

type buildOptions struct {
	strictTokens bool
}

// WithStrictTokens makes Build reject base/quote values that neither resolve
// through the token table nor parse as a valid address for the target chain.
// The default is permissive: unknown symbols are forwarded for the backend to
// resolve, which keeps newly listed tokens working but lets typos through.
func WithStrictTokens() Option {
	return func(o *buildOptions) { o.strictTokens = true }
}

// Wire shape of the intent document. Element order is load-bearing: the
// backend parser expects exactly this nesting.
type intentDoc struct {
	XMLName xml.Name `xml:"intent"`
	Type    string   `xml:"type"`
	ChainID string   `xml:"chain_id"`
	Entry   entry    `xml:"entry"`
	Exit    *exit    `xml:"exit,omitempty"`
}

type entry struct {
	Condition condition   `xml:"condition"`
	Action    entryAction `xml:"action"`
}

type condition struct {
	Immediate string `xml:"immediate"`
}

type entryAction struct {
	Buy  *order `xml:"buy,omitempty"`
	Sell *order `xml:"sell,omitempty"`
}

// order carries the amount semantics of its parent element: under <buy> the
// amount is quote-token spend, under <sell> it is base-token disposal.
type order struct {
	Amount string `xml:"amount"`
	Quote  string `xml:"quote"`
	Base   string `xml:"base"`
}

type exit struct {
	Conditions exitConditions `xml:"conditions"`
}

type exitConditions struct {
	ProfitPercent string `xml:"profit_percent,omitempty"`
	LossPercent   string `xml:"loss_percent,omitempty"`
	Logic         string `xml:"logic"`
}

// Build validates params and assembles the intent XML and a display summary.
// It fails fast on the first violated rule and performs no partial work.
func Build(params TradeParams, opts ...Option) (BuildResult, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	if params.Action != Buy && params.Action != Sell {
		return BuildResult{}, validationf("action must be %q or %q, got %q", Buy, Sell, params.Action)
	}
	if params.Base == "" {
		return BuildResult{}, validationf("base token is required")
	}
	if params.Amount == "" {
		return BuildResult{}, validationf("amount is required")
	}
	if params.Amount == "all" && params.Action == Buy {
		return BuildResult{}, validationf(`amount "all" is only valid when selling; specify a numeric amount to buy`)
	}
	if params.Amount != "all" {
		f, err := strconv.ParseFloat(params.Amount, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return BuildResult{}, validationf("amount %q is not a number", params.Amount)
		}
	}

	quote := params.Quote
	if quote == "" {
		quote = DefaultQuote
	}

	if err := checkAIUSD(params, quote); err != nil {
		return BuildResult{}, err
	}

	chainID, err := ResolveChain(params.Chain)
	if err != nil {
		return BuildResult{}, err
	}

	base := ResolveToken(params.Base, chainID)
	resolvedQuote := ResolveToken(quote, chainID)

	if o.strictTokens {
		if err := checkStrict(params.Base, base, chainID); err != nil {
			return BuildResult{}, err
		}
		if err := checkStrict(quote, resolvedQuote, chainID); err != nil {
			return BuildResult{}, err
		}
	}

	ord := &order{Amount: params.Amount, Quote: resolvedQuote, Base: base}
	doc := intentDoc{
		Type:    "IMMEDIATE",
		ChainID: chainID,
		Entry: entry{
			Condition: condition{Immediate: "true"},
		},
	}
	if params.Action == Buy {
		doc.Entry.Action.Buy = ord
	} else {
		doc.Entry.Action.Sell = ord
	}

	if params.TakeProfit != nil || params.StopLoss != nil {
		doc.Exit = &exit{Conditions: exitConditions{Logic: "OR"}}
		if params.TakeProfit != nil {
			doc.Exit.Conditions.ProfitPercent = formatPercent(*params.TakeProfit)
		}
		if params.StopLoss != nil {
			doc.Exit.Conditions.LossPercent = formatPercent(*params.StopLoss)
		}
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		// Only reachable if the doc types themselves are broken.
		return BuildResult{}, fmt.Errorf("marshal intent: %w", err)
	}

	return BuildResult{XML: string(out), Summary: summarize(params, quote)}, nil
}

// checkAIUSD enforces the platform rule that AIUSD converts directly only to
// stablecoins. The message spells out the two-step workaround with the
// caller's own values so it can be acted on without further lookup.
func checkAIUSD(params TradeParams, quote string) error {
	if !strings.EqualFold(quote, "AIUSD") {
		return nil
	}
	if stablecoins[strings.ToUpper(params.Base)] {
		return nil
	}
	return validationf(
		"AIUSD can only be converted directly to a stablecoin (USDC, USDT, USD1, DAI, BUSD), not to %s. "+
			"Trade in two steps instead: "+
			`first convert AIUSD to USDC with {action: "buy", base: "USDC", quote: "AIUSD", amount: %q, chain: %q}, `+
			`then buy %s with {action: "buy", base: %q, quote: "USDC", amount: %q, chain: %q}`,
		params.Base,
		params.Amount, params.Chain,
		params.Base, params.Base, params.Amount, params.Chain,
	)
}

func checkStrict(input, resolved, chainID string) error {
	if resolved != input {
		return nil // table hit
	}
	if ValidAddress(chainID, input) {
		return nil
	}
	return validationf("unknown token %q on %s: not in the known-token table and not a valid address", input, chainID)
}

// summarize renders the trade for human display using the caller's original
// strings, not the resolved addresses.
func summarize(params TradeParams, quote string) string {
	var sb strings.Builder
	if params.Action == Buy {
		fmt.Fprintf(&sb, "Buy %s with %s %s on %s", params.Base, params.Amount, quote, params.Chain)
	} else {
		fmt.Fprintf(&sb, "Sell %s %s for %s on %s", params.Amount, params.Base, quote, params.Chain)
	}
	if params.TakeProfit != nil {
		fmt.Fprintf(&sb, " (TP: +%s%%)", formatPercent(*params.TakeProfit))
	}
	if params.StopLoss != nil {
		fmt.Fprintf(&sb, " (SL: -%s%%)", formatPercent(*params.StopLoss))
	}
	return sb.String()
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
