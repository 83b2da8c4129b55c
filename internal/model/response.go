package model

import (
	"encoding/json"
	"errors"
)

const (
	ResponseTypeNewImage = "new-image"
	ResponseTypePrompt   = "prompt-response"
)

// NewImageResponse is returned after an upload opens a session. Field names
// are shared with the browser client.
type NewImageResponse struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	Mode      string `json:"mode"`
}

type TransformationSuccess struct {
	URL            string         `json:"url"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Transformation *TransformPlan `json:"transformation"`
}

// PromptResponse carries either a refusal message or a TransformationSuccess
// in Result; on the wire result is a plain string for refusals.
type PromptResponse struct {
	Type    string                 `json:"type"`
	Refusal string                 `json:"-"`
	Success *TransformationSuccess `json:"-"`
}

func NewRefusalResponse(message string) *PromptResponse {
	return &PromptResponse{Type: ResponseTypePrompt, Refusal: message}
}

func NewSuccessResponse(success *TransformationSuccess) *PromptResponse {
	return &PromptResponse{Type: ResponseTypePrompt, Success: success}
}

func (r PromptResponse) MarshalJSON() ([]byte, error) {
	var result interface{} = r.Refusal
	if r.Success != nil {
		result = r.Success
	}
	return json.Marshal(struct {
		Type   string      `json:"type"`
		Result interface{} `json:"result"`
	}{Type: r.Type, Result: result})
}

func (r *PromptResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   string          `json:"type"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = PromptResponse{Type: raw.Type}
	if len(raw.Result) == 0 {
		return errors.New("prompt response without result")
	}
	if raw.Result[0] == '"' {
		return json.Unmarshal(raw.Result, &r.Refusal)
	}
	r.Success = &TransformationSuccess{}
	return json.Unmarshal(raw.Result, r.Success)
}

// InterpretationKind tags what the language model produced for a prompt.
type InterpretationKind int

const (
	KindRefusal InterpretationKind = iota + 1
	KindPlan
)

func (k InterpretationKind) String() string {
	switch k {
	case KindRefusal:
		return "refusal"
	case KindPlan:
		return "plan"
	}
	return "unknown"
}

// Interpretation is either a refusal (not an error) or a validated plan.
type Interpretation struct {
	Kind    InterpretationKind
	Refusal string
	Plan    *TransformPlan
}

func Refusal(message string) *Interpretation {
	return &Interpretation{Kind: KindRefusal, Refusal: message}
}

func Planned(plan *TransformPlan) *Interpretation {
	return &Interpretation{Kind: KindPlan, Plan: plan}
}
