package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("max 0 returns as-is")
	}
}

func TestTruncate_multibyte(t *testing.T) {
	s := strings.Repeat("日本語", 10)
	got := Truncate(s, 7)
	if !utf8.ValidString(got) {
		t.Errorf("truncation produced invalid UTF-8: %q", got)
	}
	if got != string([]rune(s)[:7])+"..." {
		t.Errorf("got %q", got)
	}
}
