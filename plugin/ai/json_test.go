package ai

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"quality": 4}`,
			want:  `{"quality": 4}`,
		},
		{
			name:  "markdown fence",
			input: "Here you go:\n```json\n{\"correct\": true}\n```\nHope that helps!",
			want:  `{"correct": true}`,
		},
		{
			name:  "nested objects",
			input: `prefix {"a": {"b": 1}, "c": [1, 2]} suffix`,
			want:  `{"a": {"b": 1}, "c": [1, 2]}`,
		},
		{
			name:  "braces inside strings",
			input: `{"text": "use { and } freely", "ok": true}`,
			want:  `{"text": "use { and } freely", "ok": true}`,
		},
		{
			name:  "escaped quote inside string",
			input: `{"text": "she said \"hi}\"", "n": 1}`,
			want:  `{"text": "she said \"hi}\"", "n": 1}`,
		},
		{
			name:    "no object",
			input:   "sorry, I cannot help with that",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			input:   `{"a": 1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMockCompletionFIFO(t *testing.T) {
	mock := NewMockCompletion("first", "second")

	got, err := mock.Complete(t.Context(), "sys", "user", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first" {
		t.Errorf("got %q, want %q", got, "first")
	}

	got, _ = mock.Complete(t.Context(), "sys", "user", 0)
	if got != "second" {
		t.Errorf("got %q, want %q", got, "second")
	}

	if _, err := mock.Complete(t.Context(), "sys", "user", 0); err == nil {
		t.Error("expected error when queue is empty")
	}

	if mock.CallCount() != 3 {
		t.Errorf("got %d calls, want 3", mock.CallCount())
	}
}
