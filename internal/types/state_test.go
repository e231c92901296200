package types

import (
	"errors"
	"strings"
	"testing"
)

func TestBoundedStringReplace(t *testing.T) {
	var b BoundedString
	if b.String() != "" {
		t.Fatalf("zero value should be empty, got %q", b.String())
	}

	changed, err := b.Replace("CES2023")
	if err != nil || !changed {
		t.Fatalf("first Replace: changed=%v err=%v", changed, err)
	}
	if b.String() != "CES2023" {
		t.Errorf("Expected CES2023, got %q", b.String())
	}

	changed, err = b.Replace("CES2023")
	if err != nil || changed {
		t.Errorf("identical Replace: changed=%v err=%v", changed, err)
	}
}

func TestBoundedStringEmptyCountsAsChangeWhenUnset(t *testing.T) {
	var b BoundedString
	changed, err := b.Replace("")
	if err != nil || !changed {
		t.Fatalf("Replace(\"\") on unset value: changed=%v err=%v", changed, err)
	}
	changed, err = b.Replace("")
	if err != nil || changed {
		t.Errorf("second Replace(\"\"): changed=%v err=%v", changed, err)
	}
}

func TestBoundedStringRejectsOversized(t *testing.T) {
	var b BoundedString
	_, _ = b.Replace("old")

	changed, err := b.Replace(strings.Repeat("x", MaxBoundedStringLen+1))
	if !errors.Is(err, ErrValueTooLong) {
		t.Fatalf("Expected ErrValueTooLong, got %v", err)
	}
	if changed {
		t.Error("Oversized value must not report a change")
	}
	if b.String() != "old" {
		t.Errorf("Previous value should be kept, got %q", b.String())
	}
}

func TestBoundedStringAcceptsExactCapacity(t *testing.T) {
	var b BoundedString
	v := strings.Repeat("y", MaxBoundedStringLen)
	changed, err := b.Replace(v)
	if err != nil || !changed {
		t.Fatalf("255-byte value: changed=%v err=%v", changed, err)
	}
}
