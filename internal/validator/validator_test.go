package validator

import (
	"errors"
	"testing"
)

type sampleRequest struct {
	Username string `json:"username" validate:"required,username,max=64"`
	Name     string `json:"name" validate:"required,not_blank,max=100"`
	Duration int    `json:"duration" validate:"study_duration"`
	Code     string `json:"code,omitempty" validate:"omitempty,len=8,alphanum"`
}

func TestValidator_Validate(t *testing.T) {
	v := New()
	tests := []struct {
		name      string
		req       sampleRequest
		wantField string
		wantRule  string
	}{
		{name: "valid", req: sampleRequest{Username: "ana", Name: "Math", Duration: 25}},
		{name: "valid max duration", req: sampleRequest{Username: "ana", Name: "Math", Duration: 180}},
		{name: "missing username", req: sampleRequest{Name: "Math", Duration: 25}, wantField: "username", wantRule: "required"},
		{name: "username with colon", req: sampleRequest{Username: "a:b", Name: "Math", Duration: 25}, wantField: "username", wantRule: "username"},
		{name: "username with space", req: sampleRequest{Username: "a b", Name: "Math", Duration: 25}, wantField: "username", wantRule: "username"},
		{name: "blank name", req: sampleRequest{Username: "ana", Name: "   ", Duration: 25}, wantField: "name", wantRule: "not_blank"},
		{name: "zero duration", req: sampleRequest{Username: "ana", Name: "Math"}, wantField: "duration", wantRule: "study_duration"},
		{name: "duration too long", req: sampleRequest{Username: "ana", Name: "Math", Duration: 181}, wantField: "duration", wantRule: "study_duration"},
		{name: "short code", req: sampleRequest{Username: "ana", Name: "Math", Duration: 25, Code: "ABC"}, wantField: "code", wantRule: "len"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() error = %v, want ValidationErrors", err)
			}
			if len(verrs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(verrs), verrs)
			}
			if verrs[0].Field != tt.wantField || verrs[0].Rule != tt.wantRule {
				t.Errorf("got %s/%s, want %s/%s", verrs[0].Field, verrs[0].Rule, tt.wantField, tt.wantRule)
			}
			if verrs[0].Message == "" {
				t.Error("message should not be empty")
			}
		})
	}
}

func TestValidator_ValidateStudyDuration(t *testing.T) {
	v := New()
	for _, d := range []int{1, 25, 180} {
		if err := v.ValidateStudyDuration(d); err != nil {
			t.Errorf("ValidateStudyDuration(%d) = %v, want nil", d, err)
		}
	}
	for _, d := range []int{-5, 0, 181} {
		if err := v.ValidateStudyDuration(d); err == nil {
			t.Errorf("ValidateStudyDuration(%d) = nil, want error", d)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	tests := []struct {
		errs ValidationErrors
		want string
	}{
		{errs: nil, want: "validation failed"},
		{errs: ValidationErrors{{Field: "name", Message: "is required"}}, want: "validation failed: name is required"},
		{errs: ValidationErrors{{Field: "a"}, {Field: "b"}}, want: "validation failed: 2 field errors"},
	}
	for _, tt := range tests {
		if got := tt.errs.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
