package models

import (
	"strings"
	"testing"
)

func TestSeverityOrdering(t *testing.T) {
	if !SeverityCritical.AtLeast(SeverityHigh) {
		t.Error("critical must outrank high")
	}
	if !SeverityHigh.AtLeast(SeverityHigh) {
		t.Error("a severity must be at least itself")
	}
	if SeverityLow.AtLeast(SeverityMedium) {
		t.Error("low must not outrank medium")
	}
	if Severity("bogus").Rank() != 0 {
		t.Error("unknown severity must rank lowest")
	}
}

func TestNewID(t *testing.T) {
	a := NewID("tf")
	b := NewID("tf")

	if !strings.HasPrefix(a, "tf-") {
		t.Errorf("expected tf- prefix, got %s", a)
	}
	if len(a) != len("tf-")+16 {
		t.Errorf("unexpected id length: %s", a)
	}
	if a == b {
		t.Error("consecutive ids must differ")
	}
}
