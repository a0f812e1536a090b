package triage

import "testing"

func TestClassify_Precedence(t *testing.T) {
	c := NewClassifier()

	cases := []struct {
		name string
		msg  string
		want Classification
	}{
		{"question mark", "Is my refund processed?", Query},
		{"question cue", "what is the status of my ticket", Query},
		{"status cue beats sentiment", "status update please, I am very disappointed", Query},
		{"negative", "I am very disappointed, my money was debited but I didn't receive cash.", NegativeFeedback},
		{"negative phrase", "the transfer did not work", NegativeFeedback},
		{"positive", "Thank you, the app is really good service!", PositiveFeedback},
		{"positive word", "awesome experience", PositiveFeedback},
		{"fallback", "hello there", Query},
		{"case insensitive", "TERRIBLE experience", NegativeFeedback},
		{"empty", "", Query},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.msg); got != tc.want {
				t.Fatalf("Classify(%q) = %q, want %q", tc.msg, got, tc.want)
			}
		})
	}
}

func TestClassify_CustomCues(t *testing.T) {
	c := NewClassifier(
		WithQuestionCues(nil),
		WithNegativeCues([]string{"kaputt"}),
		WithPositiveCues([]string{"prima"}),
	)
	if got := c.Classify("alles kaputt"); got != NegativeFeedback {
		t.Fatalf("custom negative cue: got %q", got)
	}
	if got := c.Classify("alles prima"); got != PositiveFeedback {
		t.Fatalf("custom positive cue: got %q", got)
	}
	// "?" detection survives an empty question cue list.
	if got := c.Classify("alles prima?"); got != Query {
		t.Fatalf("question mark: got %q", got)
	}
}

func TestExtractTicketID(t *testing.T) {
	cases := []struct {
		msg   string
		want  string
		found bool
	}{
		{"What is the status of my ticket 123456?", "123456", true},
		{"ids 111111 and 222222", "111111", true},
		{"too short 12345", "", false},
		{"too long 1234567", "", false},
		{"no digits here", "", false},
		{"boundary #654321.", "654321", true},
	}
	for _, tc := range cases {
		got, ok := ExtractTicketID(tc.msg)
		if ok != tc.found || got != tc.want {
			t.Fatalf("ExtractTicketID(%q) = (%q,%v), want (%q,%v)", tc.msg, got, ok, tc.want, tc.found)
		}
	}
}
