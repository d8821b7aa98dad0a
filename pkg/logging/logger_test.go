package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestLevelsWriteToTheirLoggers(t *testing.T) {
	var info, warn, errs bytes.Buffer
	InfoLogger = log.New(&info, "INFO: ", 0)
	WarnLogger = log.New(&warn, "WARN: ", 0)
	ErrorLogger = log.New(&errs, "ERROR: ", 0)
	t.Cleanup(func() { InfoLogger, WarnLogger, ErrorLogger = nil, nil, nil })

	Infof("recorded %s", "tx_1")
	Warnf("missing metadata")
	Errorf("insert failed: %v", "boom")

	if got := info.String(); !strings.Contains(got, "INFO: recorded tx_1") {
		t.Errorf("info output = %q", got)
	}
	if got := warn.String(); !strings.Contains(got, "WARN: missing metadata") {
		t.Errorf("warn output = %q", got)
	}
	if got := errs.String(); !strings.Contains(got, "ERROR: insert failed: boom") {
		t.Errorf("error output = %q", got)
	}
}

func TestUninitializedLoggersAreSilent(t *testing.T) {
	InfoLogger, WarnLogger, ErrorLogger = nil, nil, nil
	Infof("nothing")
	Warnf("nothing")
	Errorf("nothing")
}
