// Package sweep – batch dispatch engine
//
// This package drives notification delivery: the scheduled sweeps over the
// due-soon and delinquent audiences, and the manual per-folio and free-form
// sends the back office triggers. Every gate and every delivery attempt
// reports a tagged Outcome instead of an error, so a sweep never dies on a
// single recipient: negative outcomes are recorded and the batch moves on.
package sweep

import "fmt"

// Kind discriminates the three outcome shapes.
type Kind int

const (
	// KindSkip means a gate stopped the send before the provider was
	// called.
	KindSkip Kind = iota
	// KindFail means the provider was called and rejected the message.
	KindFail
	// KindSent means the provider accepted the message.
	KindSent
)

// SkipReason names the gate that stopped a send. The values are the report
// codes the back office already knows.
type SkipReason string

const (
	// SkipGlobalOff: the company's channel master switch is off.
	SkipGlobalOff SkipReason = "GLOBAL_OFF"
	// SkipNoTemplate: the category has no active template on this channel.
	SkipNoTemplate SkipReason = "NO_TEMPLATE"
	// SkipLotOff: the recipient turned off batch messages for this lot.
	SkipLotOff SkipReason = "LOTE_OFF"
	// SkipNoData: the recipient has no email on record.
	SkipNoData SkipReason = "NO_DATA"
	// SkipNoPhone: the recipient has no phone number on record.
	SkipNoPhone SkipReason = "NO_PHONE"
)

// Outcome is the tagged result of one per-recipient, per-channel attempt.
type Outcome struct {
	Kind   Kind
	Reason SkipReason // set when Kind is KindSkip
	Status int        // provider status when Kind is KindFail or KindSent
	Detail string     // truncated provider body, when available
}

// Skip builds a gate outcome.
func Skip(reason SkipReason) Outcome {
	return Outcome{Kind: KindSkip, Reason: reason}
}

// Fail builds a provider-rejected outcome.
func Fail(status int, detail string) Outcome {
	return Outcome{Kind: KindFail, Status: status, Detail: detail}
}

// Sent builds an accepted outcome.
func Sent(status int, detail string) Outcome {
	return Outcome{Kind: KindSent, Status: status, Detail: detail}
}

// String renders the outcome the way report lines carry it.
func (o Outcome) String() string {
	switch o.Kind {
	case KindSkip:
		return string(o.Reason)
	default:
		if o.Detail != "" {
			return fmt.Sprintf("Status: %d | %s", o.Status, o.Detail)
		}
		return fmt.Sprintf("Status: %d", o.Status)
	}
}

// outcomeFrom classifies a provider result.
func outcomeFrom(status int, detail string, accepted bool) Outcome {
	if accepted {
		return Sent(status, detail)
	}
	return Fail(status, detail)
}

// truncate caps provider bodies so report lines stay readable.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
