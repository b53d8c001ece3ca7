package notify

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	n := New(Error, CreateConflict)
	if n.Message != messages[CreateConflict] {
		t.Errorf("message = %q", n.Message)
	}
	if n.Duration != 0 {
		t.Errorf("errors should stay until dismissed, got %v", n.Duration)
	}
	if New(Error, CreateConflict).ID == n.ID {
		t.Error("ids must be unique")
	}
	if s := New(Success, CreateSucceeded); s.Duration == 0 {
		t.Error("success notifications should time out")
	}
}

func TestConflictMessageIsDistinct(t *testing.T) {
	if messages[CreateConflict] == messages[CreateFailed] {
		t.Fatal("conflict must read differently from a generic failure")
	}
	if messages[NotAuthorized] == messages[Forbidden] {
		t.Fatal("401 and 403 must read differently")
	}
}

func TestUnknownKindFallsBack(t *testing.T) {
	if n := New(Info, Kind("custom.kind")); n.Message != "custom.kind" {
		t.Errorf("message = %q", n.Message)
	}
}

func TestMultiAndWriter(t *testing.T) {
	var buf bytes.Buffer
	rec := &Recorder{}
	sink := Multi{&Writer{W: &buf}, rec}

	sink.Notify(New(Warning, ForcedLogout))
	sink.Notify(New(Success, DeleteSucceeded))

	if got := rec.Kinds(); len(got) != 2 || got[0] != ForcedLogout || got[1] != DeleteSucceeded {
		t.Fatalf("kinds = %v", got)
	}
	if !strings.Contains(buf.String(), "[warning] "+messages[ForcedLogout]) {
		t.Errorf("writer output = %q", buf.String())
	}
}
