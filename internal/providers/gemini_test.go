package providers

import (
	"encoding/json"
	"testing"

	"google.golang.org/genai"

	"github.com/haasonsaas/conclave/internal/agent"
)

func TestGeminiResponder_Model(t *testing.T) {
	p := &GeminiResponder{defaultModel: "gemini-2.0-flash"}
	if got := p.model(&agent.Request{}); got != "gemini-2.0-flash" {
		t.Errorf("model() = %q, want default", got)
	}
	if got := p.model(&agent.Request{Model: "gemini-2.5-pro"}); got != "gemini-2.5-pro" {
		t.Errorf("model() = %q, want request override", got)
	}
}

func TestConvertSchema_NilParamsReturnsNilSchema(t *testing.T) {
	if s := convertSchema(nil); s != nil {
		t.Errorf("convertSchema(nil) = %+v, want nil", s)
	}
}

func TestConvertSchema_BuildsPropertiesAndRequired(t *testing.T) {
	schema := convertSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{"type": "string", "description": "the city name"},
		},
		"required": []any{"city"},
	})
	if schema.Type != genai.TypeObject {
		t.Errorf("Type = %v, want object", schema.Type)
	}
	prop, ok := schema.Properties["city"]
	if !ok {
		t.Fatal("expected a city property")
	}
	if prop.Type != genai.TypeString || prop.Description != "the city name" {
		t.Errorf("city property = %+v", prop)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "city" {
		t.Errorf("Required = %+v, want [city]", schema.Required)
	}
}

func TestMarshalArgs_EmptyMapReturnsEmptyObject(t *testing.T) {
	if got := marshalArgs(nil); got != "{}" {
		t.Errorf("marshalArgs(nil) = %q, want {}", got)
	}
}

func TestMarshalArgs_RoundTripsValues(t *testing.T) {
	got := marshalArgs(map[string]any{"city": "Paris"})
	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["city"] != "Paris" {
		t.Errorf("decoded = %+v", decoded)
	}
}
