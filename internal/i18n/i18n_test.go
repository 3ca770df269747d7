package i18n

import (
	"context"
	"testing"
)

func TestTranslate(t *testing.T) {
	if err := Init("ko"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ko := WithLocalizer(context.Background(), NewLocalizer("ko"))
	if got := T(ko, "NoActiveQuestion"); got != "활성화된 문제가 없습니다." {
		t.Errorf("ko NoActiveQuestion = %q", got)
	}

	en := WithLocalizer(context.Background(), NewLocalizer("en"))
	if got := T(en, "LoginButton"); got != "Log in" {
		t.Errorf("en LoginButton = %q", got)
	}
}

func TestTranslateWithData(t *testing.T) {
	if err := Init("ko"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
	got := Td(ctx, "Welcome", map[string]any{"StudentID": "s01"})
	want := "Welcome, s01. Choose a menu item."
	if got != want {
		t.Errorf("Welcome = %q, want %q", got, want)
	}
}

func TestMissingIDFallsBackToID(t *testing.T) {
	if err := Init("ko"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ctx := WithLocalizer(context.Background(), NewLocalizer("ko"))
	if got := T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("missing ID = %q, want the ID itself", got)
	}
}

func TestNoLocalizerInContextDefaultsToKorean(t *testing.T) {
	if err := Init("ko"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if got := T(context.Background(), "SurveySaved"); got != "설문이 저장되었습니다." {
		t.Errorf("default SurveySaved = %q", got)
	}
}
