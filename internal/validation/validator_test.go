// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package validation

import (
	"strings"
	"sync"
	"testing"
)

type sampleRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,session_id"`
	Action    string `json:"action" validate:"required,max=16"`
	Density   string `json:"density" validate:"omitempty,oneof=compact comfortable spacious"`
	Accent    string `json:"accent" validate:"omitempty,hexcolor"`
	Age       int    `json:"age" validate:"gte=18,lte=100"`
}

func TestGetValidator_Singleton(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]interface{}, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = GetValidator()
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("GetValidator returned different instances")
		}
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	req := sampleRequest{
		SessionID: "3f0e8c1a-9d2b-4c5e-8f7a-1b2c3d4e5f60",
		Action:    "click",
		Density:   "compact",
		Accent:    "#2563eb",
		Age:       42,
	}
	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("ValidateStruct() = %v, want nil", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		req       sampleRequest
		wantField string
		wantTag   string
	}{
		{"missing action", sampleRequest{Age: 30}, "action", "required"},
		{"action too long", sampleRequest{Action: strings.Repeat("x", 17), Age: 30}, "action", "max"},
		{"bad density", sampleRequest{Action: "a", Density: "dense", Age: 30}, "density", "oneof"},
		{"bad accent", sampleRequest{Action: "a", Accent: "blue", Age: 30}, "accent", "hexcolor"},
		{"too young", sampleRequest{Action: "a", Age: 12}, "age", "gte"},
		{"bad session", sampleRequest{Action: "a", Age: 30, SessionID: "has spaces"}, "session_id", "session_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if err == nil {
				t.Fatal("expected validation error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors (%v), want 1", len(errs), err)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("got %s/%s, want %s/%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Age: 30})
	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if apiErr.Message != "action is required" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "action is required")
	}
	if apiErr.Details["field"] != "action" {
		t.Errorf("Details[field] = %v", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Density: "dense", Age: 5})
	apiErr := err.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] has type %T", apiErr.Details["fields"])
	}
	if len(fields) != 3 {
		t.Errorf("got %d field errors, want 3", len(fields))
	}
	if !strings.Contains(apiErr.Message, "density must be one of") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestErrorMessages(t *testing.T) {
	err := ValidateStruct(&sampleRequest{Action: "a", Age: 101})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "age must be less than or equal to 100" {
		t.Errorf("Error() = %q", got)
	}
}
