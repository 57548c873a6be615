package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCmd_PrintsVersion(t *testing.T) {
	SetVersion("9.9.9")
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	if !strings.Contains(out.String(), "9.9.9") {
		t.Errorf("expected output to contain version, got %q", out.String())
	}
}
