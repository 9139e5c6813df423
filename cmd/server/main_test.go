package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "check-config", "availability"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %s not registered: %v", name, err)
		}
	}
}

func TestAvailabilityRequiresDate(t *testing.T) {
	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"availability"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "date") {
		t.Fatalf("err = %v, want missing --date", err)
	}
}
