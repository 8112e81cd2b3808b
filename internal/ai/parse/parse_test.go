package parse

import (
	"errors"
	"math"
	"testing"
)

func TestObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		key     string
		want    any
		wantErr bool
	}{
		{
			name: "plain object",
			raw:  `{"analysis": "ok", "confidence": 0.9}`,
			key:  "analysis",
			want: "ok",
		},
		{
			name: "surrounded by prose",
			raw:  "Here is my evaluation:\n{\"analysis\": \"solid\"}\nHope it helps!",
			key:  "analysis",
			want: "solid",
		},
		{
			name: "code fence",
			raw:  "```json\n{\"score\": 42}\n```",
			key:  "score",
			want: float64(42),
		},
		{
			name: "braces inside strings",
			raw:  `note {"analysis": "use {braces} and \"quotes\" }"} trailing }`,
			key:  "analysis",
			want: `use {braces} and "quotes" }`,
		},
		{
			name: "first object wins",
			raw:  `{"a": 1} {"a": 2}`,
			key:  "a",
			want: float64(1),
		},
		{
			name: "skips invalid balanced candidate",
			raw:  `{not json} then {"a": 3}`,
			key:  "a",
			want: float64(3),
		},
		{
			name:    "no object",
			raw:     "I cannot evaluate this answer.",
			wantErr: true,
		},
		{
			name:    "unbalanced",
			raw:     `{"analysis": "cut off`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Object(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrNoObject) {
					t.Fatalf("expected ErrNoObject, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got[tt.key] != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got[tt.key])
			}
		})
	}
}

func TestFloat(t *testing.T) {
	t.Parallel()

	if got := Float("85"); got != 85 {
		t.Fatalf("expected 85, got %v", got)
	}
	if got := Float(" 72.5% "); got != 72.5 {
		t.Fatalf("expected 72.5, got %v", got)
	}
	if got := Float(nil); !math.IsNaN(got) {
		t.Fatalf("expected NaN for nil, got %v", got)
	}
	if got := Float("high"); !math.IsNaN(got) {
		t.Fatalf("expected NaN for words, got %v", got)
	}
}

func TestStrings(t *testing.T) {
	t.Parallel()

	got, ok := Strings([]any{" first ", "", 3.0})
	if !ok {
		t.Fatal("expected array to be accepted")
	}
	if len(got) != 2 || got[0] != "first" || got[1] != "3" {
		t.Fatalf("unexpected strings: %#v", got)
	}

	if _, ok := Strings(nil); ok {
		t.Fatal("expected nil to be reported as missing")
	}
}

func TestDecodeWeaklyTyped(t *testing.T) {
	t.Parallel()

	var out struct {
		Name  string  `mapstructure:"name"`
		Score float64 `mapstructure:"score"`
	}
	if err := Decode(map[string]any{"name": "laptop", "score": "0.9"}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Name != "laptop" || out.Score != 0.9 {
		t.Fatalf("unexpected decode result: %+v", out)
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	if Clamp(140, 0, 100) != 100 || Clamp(-3, 0, 100) != 0 || Clamp(math.NaN(), 0, 100) != 0 {
		t.Fatal("clamp bounds not honoured")
	}
}
