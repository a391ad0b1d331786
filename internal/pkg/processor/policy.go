package processor

type Stage string

const (
	StageDecode      Stage = "decode"
	StageIdentity    Stage = "identity"
	StageDurable     Stage = "durable"
	StageViews       Stage = "views"
	StageCorrelation Stage = "correlation"
)

type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeInserted  Outcome = "inserted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Policy is how the processor reacts to a failing stage.
type Policy struct {
	// Retries is the number of extra attempts before the stage counts as failed.
	Retries int
	// Escalate returns the stage error from Process even when the stage is isolated.
	Escalate bool
	// Isolate lets the remaining stages run after a failure. A stage that is not
	// isolated aborts the message.
	Isolate bool
	// Gates lists the stages skipped when this one fails.
	Gates []Stage
}

// policies is consulted for every stage. Nothing is retried or escalated: a message
// is handled at most once and the consumer commits regardless of the outcome.
var policies = map[Stage]Policy{
	StageDecode:      {},
	StageIdentity:    {},
	StageDurable:     {Isolate: true, Gates: []Stage{StageViews}},
	StageViews:       {Isolate: true},
	StageCorrelation: {Isolate: true},
}

func policyFor(stage Stage) Policy {
	return policies[stage]
}
