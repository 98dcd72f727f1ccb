package logger

import "testing"

func TestNopLoggerNeverPanics(t *testing.T) {
	var l NopLogger
	l.Debugf("x %d", 1)
	l.Debugw("x", map[string]any{"a": 1})
	l.Infof("x")
	l.Warnf("x")
	l.Errorf("x")
}

func TestNewReturnsUsableLogger(t *testing.T) {
	l := New("test-component")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	l.Infof("hello %s", "world")
}
