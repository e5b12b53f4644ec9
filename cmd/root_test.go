package cmd

import (
	"errors"
	"fmt"
	"testing"

	"almpartners/dbdeploy/internal/action"
	"almpartners/dbdeploy/internal/engine"
	"almpartners/dbdeploy/internal/upgrade"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil maps via Execute, not exitCode", errors.New("generic"), exitFailure},
		{"not permitted", &action.NotPermittedError{Name: "deploy"}, exitNotPermitted},
		{"unknown action", &action.UnknownActionError{Name: "nope"}, exitUnknownAction},
		{"cyclic action", &action.CyclicActionError{Cycle: []string{"aa", "bb", "aa"}}, exitCyclicAction},
		{"no upgrade path", &upgrade.NoUpgradePathError{Target: "v2.0.0", Reason: "already up to date"}, exitNoUpgradePath},
		{"user aborted", engine.ErrAborted, exitUserAborted},
		{"wrapped typed error", fmt.Errorf("run: %w", &action.NotPermittedError{Name: "deploy"}), exitNotPermitted},
		{"wrapped abort", fmt.Errorf("upgrade: %w", engine.ErrAborted), exitUserAborted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
