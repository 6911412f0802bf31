package main

import (
	"flag"
	"os"
	"testing"
)

// TestMainFlags verifies that command-line flags are parsed correctly.
func TestMainFlags(t *testing.T) {
	oldArgs := os.Args

	t.Cleanup(func() { os.Args = oldArgs })

	tests := []struct {
		name        string
		args        []string
		wantText    string
		wantBacking string
		wantSpeed   float64
	}{
		{
			name:        "defaults",
			args:        []string{"cmd", "--text", "I am calm"},
			wantText:    "I am calm",
			wantBacking: defaultBacking,
			wantSpeed:   defaultSpeed,
		},
		{
			name: "explicit values",
			args: []string{
				"cmd",
				"--text", "I am calm",
				"--backing", "https://cdn.example.com/rain.mp3",
				"--speed", "1.5",
			},
			wantText:    "I am calm",
			wantBacking: "https://cdn.example.com/rain.mp3",
			wantSpeed:   1.5,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			// Reset flag parsing state for each test run to ensure isolation.
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
			os.Args = testCase.args

			flags := parseFlags()

			if flags.text != testCase.wantText {
				t.Errorf("Expected text %q, got %q", testCase.wantText, flags.text)
			}

			if flags.backing != testCase.wantBacking {
				t.Errorf(
					"Expected backing %q, got %q",
					testCase.wantBacking,
					flags.backing,
				)
			}

			if flags.speed != testCase.wantSpeed {
				t.Errorf(
					"Expected speed %v, got %v",
					testCase.wantSpeed,
					flags.speed,
				)
			}
		})
	}
}

// TestMixRequestValidation verifies that a mix without text is rejected
// before any network call.
func TestMixRequestValidation(t *testing.T) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flag.Usage = func() {}

	err := handleMix(appFlags{text: "   "})
	if err == nil {
		t.Fatal("expected an error for missing text")
	}

	if err.Error() != errTextRequired {
		t.Errorf("Expected %q, got %q", errTextRequired, err.Error())
	}
}
