package diag

import (
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestRecorder(t *testing.T) {
	var rec Recorder
	h := rec.Handler()
	h.Emit(SourceBox, 62, "'colr' box has incorrect box length (%d)", 1000)
	h.Emit(SourceCodestream, -1, "Unrecognized marker id 0x%04x", 0xff79)

	if rec.Len() != 2 {
		t.Fatalf("Expected 2 diagnostics, got %d", rec.Len())
	}
	got := rec.Diagnostics()
	if got[0].Offset != 62 || got[0].Source != SourceBox {
		t.Errorf("Unexpected first diagnostic: %+v", got[0])
	}
	if !rec.Contains("unrecognized marker") {
		t.Error("Contains should match case-insensitively")
	}
	if rec.Contains("missing text") {
		t.Error("Contains matched text that was never emitted")
	}
	if got[1].String() != "codestream: Unrecognized marker id 0xff79" {
		t.Errorf("String() = %q", got[1].String())
	}
}

func TestNilHandlerDrops(t *testing.T) {
	var h Handler
	h.Emit(SourceBox, 0, "ignored")
}

func TestLoggerHandler(t *testing.T) {
	var buf bytes.Buffer
	l := log.New()
	l.SetOutput(&buf)
	l.SetFormatter(&log.TextFormatter{DisableTimestamp: true, DisableColors: true})

	Logger(l)(Diagnostic{Source: SourceBox, Offset: 77, Message: "bad box"})

	out := buf.String()
	for _, want := range []string{"level=warning", "bad box", "offset=77", "source=box"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestTee(t *testing.T) {
	var a, b Recorder
	Tee(a.Handler(), nil, b.Handler())(Diagnostic{Message: "x"})
	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("Tee delivered %d and %d", a.Len(), b.Len())
	}
}
