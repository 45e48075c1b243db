package llm

import "testing"

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := BuildSummaryJSONSchema()

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"valid", `{"summary":"1. Point."}`, false},
		{"empty summary", `{"summary":""}`, true},
		{"missing summary", `{}`, true},
		{"extra field", `{"summary":"x","extra":1}`, true},
		{"wrong type", `{"summary":42}`, true},
		{"not json", `nonsense{`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONAgainstSchema(schema, []byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
