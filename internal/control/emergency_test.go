package control

import "testing"

func TestStopAndResumeToggleHalted(t *testing.T) {
	var e EmergencyStop
	if e.Halted() {
		t.Fatal("expected zero value to be running")
	}
	e.Stop()
	if !e.Halted() {
		t.Fatal("expected Stop to halt")
	}
	e.Resume()
	if e.Halted() {
		t.Fatal("expected Resume to clear halt")
	}
}
