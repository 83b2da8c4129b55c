package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPromptResponseWireShape(t *testing.T) {
	out, err := json.Marshal(NewRefusalResponse("I can only edit images."))
	require.NoError(t, err)
	require.JSONEq(t, `{"type": "prompt-response", "result": "I can only edit images."}`, string(out))

	grayscale := true
	out, err = json.Marshal(NewSuccessResponse(&TransformationSuccess{
		URL:            "/static/tmp_images/abc-1.png",
		Width:          10,
		Height:         20,
		Transformation: &TransformPlan{MakeGrayscale: &grayscale},
	}))
	require.NoError(t, err)

	var decoded PromptResponse
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Equal(t, ResponseTypePrompt, decoded.Type)
	require.Empty(t, decoded.Refusal)
	require.Equal(t, "/static/tmp_images/abc-1.png", decoded.Success.URL)
	require.True(t, *decoded.Success.Transformation.MakeGrayscale)
}

func TestInterpretationKinds(t *testing.T) {
	r := Refusal("no")
	require.Equal(t, KindRefusal, r.Kind)
	require.Equal(t, "refusal", r.Kind.String())

	p := Planned(&TransformPlan{})
	require.Equal(t, KindPlan, p.Kind)
	require.Equal(t, "plan", p.Kind.String())
}
