package text

import (
	"errors"
	"strings"
	"testing"
)

type failing struct{}

func (failing) Render(string, int) (string, error) { return "", errors.New("boom") }

func TestFallbackUsedOnError(t *testing.T) {
	r := WithFallback(failing{}, NewPlain())
	got, err := r.Render("# 标题", 80)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "# 标题" {
		t.Fatalf("got %q", got)
	}
	if _, err := WithFallback(nil, nil).Render("x", 80); err == nil {
		t.Fatal("expected error with no renderers")
	}
}

func TestGlamourRendersNotes(t *testing.T) {
	got, err := NewGlamour("dark").Render("# 行动简报\n\n目标**地点**", 60)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(got, "行动简报") || strings.Contains(got, "**") {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestOutcomesMarksLabels(t *testing.T) {
	got := Outcomes("投掷专注。成功时：平静。失败时：混沌+1。", func(s string) string { return "[" + s + "]" })
	want := "投掷专注。[成功时]：平静。[失败时]：混沌+1。"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if Outcomes("", strings.ToUpper) != "" {
		t.Fatal("empty input should stay empty")
	}
}

func TestWrap(t *testing.T) {
	if got := Wrap("aaa bbb ccc", 7); got != "aaa bbb\nccc" {
		t.Fatalf("got %q", got)
	}
	if got := Wrap("一二三四五六", 4); got != "一二三四\n五六" {
		t.Fatalf("got %q", got)
	}
	if got := Wrap("短\n行", 10); got != "短\n行" {
		t.Fatalf("got %q", got)
	}
}
