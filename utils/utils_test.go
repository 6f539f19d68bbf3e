package utils

import (
	"strings"
	"testing"
)

func TestCheckTruth(t *testing.T) {
	checkTruthTests := map[string]bool{
		"true":  true,
		"TRUE":  true,
		"t":     true,
		"yes":   true,
		"Y":     true,
		"1":     true,
		" 1 ":   true,
		"":      false,
		"false": false,
		"0":     false,
		"no":    false,
		"off":   false,
	}

	for val, expected := range checkTruthTests {
		if got := CheckTruth(val); got != expected {
			t.Errorf("CheckTruth(%q) should be %v, but got %v", val, expected, got)
		}
	}
}

func callerOfCaller() string {
	return FileWithLineNum()
}

func TestFileWithLineNum(t *testing.T) {
	got := callerOfCaller()
	if !strings.HasSuffix(strings.Split(got, ":")[0], "utils_test.go") {
		t.Errorf("expected the caller's test file, but got %v", got)
	}
}
