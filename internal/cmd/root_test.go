package cmd

import "testing"

func TestRootCommandRegistersEverySubcommand(t *testing.T) {
	t.Parallel()
	want := map[string]bool{
		"health":        false,
		"serve":         false,
		"refresh-cache": false,
		"reauth":        false,
		"version":       false,
	}
	for _, c := range rootCmd.Commands() {
		name := c.Name()
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("rootCmd is missing the %q subcommand", name)
		}
	}
}

func TestRootCommandHasConfigAndDebugFlags(t *testing.T) {
	t.Parallel()
	if rootCmd.PersistentFlags().Lookup("config") == nil {
		t.Error("rootCmd is missing the --config persistent flag")
	}
	if rootCmd.PersistentFlags().Lookup("debug") == nil {
		t.Error("rootCmd is missing the --debug persistent flag")
	}
}

func TestVersionCommandRunsWithoutPanic(t *testing.T) {
	t.Parallel()
	if versionCmd.Run == nil {
		t.Fatal("versionCmd has no Run function")
	}
	// Exercise the Run function directly; it only writes to stdout, so this
	// just guards against a future change that panics instead of printing.
	versionCmd.Run(versionCmd, nil)
}
