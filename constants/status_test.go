package constants

import "testing"

func TestTerminal(t *testing.T) {
	for _, s := range []JobState{StateCreated, StateExtracting, StateExtracted, StateSummarizing} {
		if s.Terminal() {
			t.Errorf("%s reported terminal", s)
		}
	}
	for _, s := range []JobState{StateSucceeded, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%s reported non-terminal", s)
		}
	}
}

func TestCanTransition(t *testing.T) {
	legal := [][2]JobState{
		{StateCreated, StateExtracting},
		{StateExtracting, StateExtracted},
		{StateExtracting, StateFailed},
		{StateExtracted, StateSummarizing},
		{StateSummarizing, StateSucceeded},
		{StateSummarizing, StateFailed},
		{StateExtracting, StateExtracting}, // retry in place
	}
	for _, e := range legal {
		if !CanTransition(e[0], e[1]) {
			t.Errorf("%s -> %s should be legal", e[0], e[1])
		}
	}

	illegal := [][2]JobState{
		{StateCreated, StateSummarizing},
		{StateExtracted, StateExtracting},
		{StateSucceeded, StateFailed},
		{StateFailed, StateCreated},
		{StateSucceeded, StateSucceeded},
	}
	for _, e := range illegal {
		if CanTransition(e[0], e[1]) {
			t.Errorf("%s -> %s should be illegal", e[0], e[1])
		}
	}
}

func TestMapExtToFormat(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"txt", TXT},
		{".md", TXT},
		{"PDF", PDF},
		{"jpeg", IMAGE},
		{".TIFF", IMAGE},
		{"xyz", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MapExtToFormat(tt.ext); got != tt.want {
			t.Errorf("MapExtToFormat(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}
