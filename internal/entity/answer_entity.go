package entity

import (
	"fmt"
	"math"
)

type RetrievedExcerpt struct {
	SourceId   string
	Similarity float64
	Text       string
	Metadata   map[string]interface{}
}

type Decision string

const (
	DecisionRetrieveOK Decision = "RETRIEVE_OK"
	DecisionOutOfScope Decision = "OUT_OF_SCOPE"
	DecisionAskClarify Decision = "ASK_CLARIFY"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionRetrieveOK, DecisionOutOfScope, DecisionAskClarify:
		return Decision(s), nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

type DraftAnswer struct {
	Text                 string
	Decision             Decision
	SupportingExcerptIds []string
}

type Status string

const (
	StatusOK        Status = "OK"
	StatusNeedsEdit Status = "NEEDS_EDIT"
	StatusEscalate  Status = "ESCALATE"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusOK, StatusNeedsEdit, StatusEscalate:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Action tells the presentation layer what follow-up the visitor is asked for.
type Action string

const (
	ActionNone                 Action = "NONE"
	ActionRequestClarification Action = "REQUEST_CLARIFICATION"
	ActionCollectContact       Action = "COLLECT_CONTACT"
)

// EvaluatedAnswer is never mutated after construction; a revision builds a new one.
type EvaluatedAnswer struct {
	FinalText  string
	Confidence float64
	Status     Status
	SourceIds  []string
	Action     Action
}

func NewEvaluatedAnswer(text string, confidence float64, status Status, sourceIds []string, action Action) (EvaluatedAnswer, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return EvaluatedAnswer{}, err
	}
	if action == "" {
		action = ActionNone
	}
	ids := make([]string, len(sourceIds))
	copy(ids, sourceIds)
	return EvaluatedAnswer{
		FinalText:  text,
		Confidence: ClampUnit(confidence),
		Status:     status,
		SourceIds:  ids,
		Action:     action,
	}, nil
}

// ClampUnit bounds v to [0,1]; NaN becomes 0.
func ClampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
