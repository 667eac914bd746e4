package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewDefaultsToInfoJSON(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	l := New()

	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %v, want info", l.GetLevel())
	}
	if _, ok := l.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("formatter = %T, want JSONFormatter", l.Formatter)
	}
}

func TestNewHonorsLogLevel(t *testing.T) {
	for env, want := range map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
	} {
		t.Setenv("LOG_LEVEL", env)
		if got := New().GetLevel(); got != want {
			t.Fatalf("LOG_LEVEL=%s: level = %v, want %v", env, got, want)
		}
	}
}

func TestWithComponentTagsEntries(t *testing.T) {
	entry := WithComponent(logrus.New(), "prediction")

	v, ok := entry.Data["component"]
	if !ok {
		t.Fatal("component field missing")
	}
	if v != "prediction" {
		t.Fatalf("component = %v, want prediction", v)
	}
}
