package internal

// Default trigger settings.
const (
	DefaultKeepRawTurns   = 5
	DefaultTurnThreshold  = 7
	DefaultTokenThreshold = 1500
)

// TriggerReason names the condition that decided a TriggerDecision.
type TriggerReason string

const (
	ReasonInsufficientHistory TriggerReason = "insufficient_history"
	ReasonNone                TriggerReason = "none"
	ReasonTurns               TriggerReason = "turns"
	ReasonTokens              TriggerReason = "tokens"
	ReasonBoth                TriggerReason = "both"
)

// TriggerPolicy decides when the old part of a history gets summarized.
type TriggerPolicy struct {
	KeepRawTurns   int `json:"keep_raw_turns" yaml:"keep_raw_turns"`
	TurnThreshold  int `json:"turn_threshold" yaml:"turn_threshold"`
	TokenThreshold int `json:"token_threshold" yaml:"token_threshold"`
}

// DefaultTriggerPolicy returns the stock thresholds.
func DefaultTriggerPolicy() TriggerPolicy {
	return TriggerPolicy{
		KeepRawTurns:   DefaultKeepRawTurns,
		TurnThreshold:  DefaultTurnThreshold,
		TokenThreshold: DefaultTokenThreshold,
	}
}

// TriggerDecision is the outcome of evaluating a history.
type TriggerDecision struct {
	Triggered    bool          `json:"triggered"`
	Reason       TriggerReason `json:"reason"`
	TotalTurns   int           `json:"total_turns"`
	OldTokens    int           `json:"old_tokens"`
	OldMessages  int           `json:"old_messages"`
	KeepMessages int           `json:"keep_messages"`
}

// KeepMessages is the size of the raw recent window in messages.
func (p TriggerPolicy) KeepMessages() int {
	if p.KeepRawTurns < 0 {
		return 0
	}
	return 2 * p.KeepRawTurns
}

// Split divides history into the old span and the recent window. When the
// history is no longer than the window, old is empty and recent is the whole
// history. Both slices alias history.
func (p TriggerPolicy) Split(history []Message) (old, recent []Message) {
	keep := p.KeepMessages()
	if len(history) <= keep {
		return nil, history
	}
	cut := len(history) - keep
	return history[:cut], history[cut:]
}

// Evaluate applies the trigger rule: never when the history fits in the
// recent window; otherwise when total turns reach TurnThreshold or the old
// span's estimated tokens exceed TokenThreshold. Turns are counted over the
// whole history, tokens over the old span only.
func (p TriggerPolicy) Evaluate(history []Message) TriggerDecision {
	d := TriggerDecision{
		TotalTurns:   TurnCount(history),
		KeepMessages: p.KeepMessages(),
	}
	if len(history) <= d.KeepMessages {
		d.Reason = ReasonInsufficientHistory
		return d
	}

	old, _ := p.Split(history)
	d.OldMessages = len(old)
	d.OldTokens = EstimateMessages(old)

	byTurns := d.TotalTurns >= p.TurnThreshold
	byTokens := d.OldTokens > p.TokenThreshold
	switch {
	case byTurns && byTokens:
		d.Reason = ReasonBoth
	case byTurns:
		d.Reason = ReasonTurns
	case byTokens:
		d.Reason = ReasonTokens
	default:
		d.Reason = ReasonNone
	}
	d.Triggered = byTurns || byTokens
	return d
}

// ShouldSummarize reports whether Evaluate triggers for history.
func (p TriggerPolicy) ShouldSummarize(history []Message) bool {
	return p.Evaluate(history).Triggered
}
