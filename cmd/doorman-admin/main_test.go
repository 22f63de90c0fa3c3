package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doorman-id/doorman/internal/service"
)

func TestPrintSyncResultReportsCounts(t *testing.T) {
	var buf bytes.Buffer

	err := printSyncResult(&buf, "corp", service.SyncAllResult{Synced: 4, Skipped: 1})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, `Role sync against profile "corp" complete`)
	require.Contains(t, out, "synced:  4")
	require.Contains(t, out, "skipped: 1")
	require.Contains(t, out, "Status: ok")
}

func TestPrintSyncResultFlagsFailures(t *testing.T) {
	var buf bytes.Buffer

	err := printSyncResult(&buf, "corp", service.SyncAllResult{Synced: 2, Failed: 3})
	require.NoError(t, err)

	require.Contains(t, buf.String(), "Status: completed with errors")
}

func TestParseSyncRolesFlagsDefaults(t *testing.T) {
	opts, err := parseSyncRolesFlags(nil)
	require.NoError(t, err)
	require.Empty(t, opts.Profile)
	require.NotZero(t, opts.Timeout)
}
