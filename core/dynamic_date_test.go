package core

import (
	"reflect"
	"testing"
	"time"
)

func TestParseDynamicDate(t *testing.T) {
	base := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		expression string
		baseTime   time.Time
		want       string
		wantErr    bool
	}{
		{"Static String Passthrough", "2024-01-01", base, "2024-01-01", false},
		{"Today", "$date:day:day:0", base, "2024-05-15", false},
		{"Yesterday", "$date:day:day:-1", base, "2024-05-14", false},
		{"Next Month", "$date:day:month:1", base, "2024-06-15", false},
		{"Last Year", "$date:day:year:-1", base, "2023-05-15", false},
		{"Month Format", "$date:month:day:0", base, "2024-05", false},
		{"Year Format", "$date:year:day:0", base, "2024", false},
		{"Datetime Format", "$date:datetime:day:0", base, "2024-05-15 10:00:00", false},
		{
			name:       "Year Boundary",
			expression: "$date:day:day:1",
			baseTime:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			want:       "2025-01-01",
		},
		{
			// Go normalizes Jan 31 + 1 month past the end of February.
			name:       "Month Overflow Normalization",
			expression: "$date:day:month:1",
			baseTime:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			want:       "2024-03-02",
		},
		{"Too Few Parts", "$date:day:day", base, "", true},
		{"Non-Numeric Offset", "$date:day:day:abc", base, "", true},
		{"Unknown Unit", "$date:day:week:1", base, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDynamicDate(tt.expression, tt.baseTime)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveParams(t *testing.T) {
	base := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

	resolved, err := ResolveParams(map[string]string{
		"ship_date": "$date:day:day:-1",
		"customer":  "ACME",
	}, base)
	if err != nil {
		t.Fatalf("ResolveParams error: %v", err)
	}
	want := map[string]string{
		"ship_date": "2024-05-14",
		"customer":  "ACME",
	}
	if !reflect.DeepEqual(resolved, want) {
		t.Errorf("resolved = %v, want %v", resolved, want)
	}

	if _, err := ResolveParams(map[string]string{"bad": "$date:day:day:x"}, base); err == nil {
		t.Error("expected error for malformed expression")
	}

	if got, err := ResolveParams(nil, base); err != nil || got != nil {
		t.Errorf("nil params: got %v, err %v", got, err)
	}
}
