package telegram

import "testing"

func TestCallbackAnswer(t *testing.T) {
	cases := []struct {
		data string
		want string
	}{
		{"\fyes", "yes"},
		{"\fyes|", "yes"},
		{"\fno|payload", "no"},
		{"plain", "plain"},
		{"\f  yes  ", "yes"},
	}
	for _, tc := range cases {
		if got := callbackAnswer(tc.data); got != tc.want {
			t.Errorf("callbackAnswer(%q) = %q, want %q", tc.data, got, tc.want)
		}
	}
}

func TestChatRecipient(t *testing.T) {
	if _, err := chatRecipient("123456789"); err != nil {
		t.Errorf("numeric chat id rejected: %v", err)
	}
	if _, err := chatRecipient("+10000000001"); err == nil {
		t.Error("non-numeric chat id accepted")
	}
}

func TestSafeFileName(t *testing.T) {
	got := safeFileName("AgAC/one:two")
	if got != "AgAC_one_two" {
		t.Errorf("safeFileName = %q", got)
	}
}
