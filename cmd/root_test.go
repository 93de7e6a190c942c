package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "ingest", "ask", "namespaces", "mcp", "version"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if !strings.Contains(out.String(), "finsight") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), Version) {
		t.Errorf("output missing version %q: %q", Version, out.String())
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	if err := askCmd.Args(askCmd, nil); err == nil {
		t.Error("ask should require a question argument")
	}
	if err := askCmd.Args(askCmd, []string{"what", "is", "revenue"}); err != nil {
		t.Errorf("multi-word question rejected: %v", err)
	}
}

func TestNamespacesDeleteArgs(t *testing.T) {
	if err := namespacesDeleteCmd.Args(namespacesDeleteCmd, nil); err == nil {
		t.Error("delete should require a namespace argument")
	}
	if err := namespacesDeleteCmd.Args(namespacesDeleteCmd, []string{"a", "b"}); err == nil {
		t.Error("delete should reject extra arguments")
	}
}
