package command

import "testing"

func TestParseCaseInsensitiveVerbAndArgs(t *testing.T) {
	cmd, err := Parse("video on")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Verb != VerbVideo || cmd.OnOff != "ON" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestParseQuotedSaveComment(t *testing.T) {
	cmd, err := Parse(`SAVE 5 "hello world"`)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Verb != VerbSave || cmd.Ints[0] != 5 || cmd.Str != "hello world" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestParseDisconnectWords(t *testing.T) {
	for _, w := range []string{"QUIT", "bye", "Exit", "LOGOUT"} {
		cmd, err := Parse(w)
		if err != nil {
			t.Fatalf("%s: %v", w, err)
		}
		if cmd.Verb != VerbDisconnect {
			t.Fatalf("%s: expected disconnect, got %+v", w, cmd)
		}
	}
}

func TestParseUnknownCommandFails(t *testing.T) {
	if _, err := Parse("BOGUS"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestParseStartExpUnknownKeyFails(t *testing.T) {
	if _, err := Parse("STARTEXP FILENAME=foo.fits BOGUS=1"); err == nil {
		t.Fatal("expected error for unknown STARTEXP key")
	}
}

func TestParseUnterminatedQuoteFails(t *testing.T) {
	if _, err := Parse(`SAVE 1 "unterminated`); err == nil {
		t.Fatal("expected error for unterminated quote")
	}
}

func TestParseROIWithArgs(t *testing.T) {
	cmd, err := Parse("ROI 100 200")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Verb != VerbROI || cmd.Ints[0] != 100 || cmd.Ints[1] != 200 {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestParseFrameRateNoArgIsQuery(t *testing.T) {
	cmd, err := Parse("FRAMERATE")
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Number != nil {
		t.Fatalf("expected nil number for query form, got %v", *cmd.Number)
	}
}
