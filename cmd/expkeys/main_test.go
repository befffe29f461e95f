package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleKeys = `ExpKeys.subject = 'M541';
ExpKeys.sex = 'Male'; % inline comment
ExpKeys.block1start = +120;
ExpKeys.sessiontype = {'odor' 'sequence'};
ExpKeys.notes = "don't stop";
`

var m541Dir = filepath.Join("testdata", "data", "M541", "preprocessed", "M541-2024-08-20")

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), strings.NewReader(stdin), &out, &errOut, args)
	return out.String(), errOut.String(), err
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok, "expected *ExitError, got %T: %v", err, err)
	require.Equal(t, code, exitErr.Code)
}

func TestParse_JSON(t *testing.T) {
	out, _, err := execute(t, sampleKeys, "parse")
	require.NoError(t, err)
	want := `{
  "subject": "M541",
  "sex": "Male",
  "block1start": 120,
  "sessiontype": [
    "odor",
    "sequence"
  ],
  "notes": "don't stop"
}
`
	require.Equal(t, want, out)
}

func TestParse_YAML(t *testing.T) {
	out, _, err := execute(t, sampleKeys+"ExpKeys.code = '120';\n", "parse", "-", "--format", "yaml")
	require.NoError(t, err)
	want := `subject: M541
sex: Male
block1start: 120
sessiontype:
  - odor
  - sequence
notes: don't stop
code: "120"
`
	require.Equal(t, want, out)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "120", decoded["code"])
	assert.Equal(t, 120, decoded["block1start"])
}

func TestParse_File(t *testing.T) {
	out, _, err := execute(t, "", "parse", filepath.Join(m541Dir, "M541_2024_08_20_keys.m"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "M541", decoded["subject"])
	assert.Equal(t, 120.0, decoded["block1start"])
}

func TestParse_Malformed(t *testing.T) {
	_, _, err := execute(t, `ExpKeys.notes = "unterminated;`, "parse")
	require.Error(t, err)
	require.Contains(t, err.Error(), "<stdin>: line 1, column 17")
}

func TestEncode(t *testing.T) {
	out, _, err := execute(t, `{"subject":"M541","block1start":120,"notes":"don't stop","types":["odor","sequence"]}`, "encode")
	require.NoError(t, err)
	want := `ExpKeys.subject = 'M541';
ExpKeys.block1start = 120;
ExpKeys.notes = 'don''t stop';
ExpKeys.types = {'odor', 'sequence'};
`
	require.Equal(t, want, out)

	// The encoded text parses back to the same mapping.
	back, _, err := execute(t, out, "parse")
	require.NoError(t, err)
	require.JSONEq(t, `{"subject":"M541","block1start":120,"notes":"don't stop","types":["odor","sequence"]}`, back)
}

func TestEncode_InvalidJSON(t *testing.T) {
	_, _, err := execute(t, `{"nested":{"a":1}}`, "encode")
	require.Error(t, err)
	require.Contains(t, err.Error(), "error parsing JSON")
}

func TestMetadata(t *testing.T) {
	out, _, err := execute(t, "", "metadata", m541Dir)
	require.NoError(t, err)

	var md struct {
		SessionID      string            `json:"session_id"`
		Description    string            `json:"session_description"`
		Experimenter   []string          `json:"experimenter"`
		StartTime      string            `json:"session_start_time"`
		ProbeLocations map[string]string `json:"probe_locations"`
		Subject        map[string]string `json:"subject"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &md))
	assert.Equal(t, "2024+08+20", md.SessionID)
	assert.Equal(t, "odor | sequence", md.Description)
	assert.Equal(t, []string{"Mahopatra, Manish"}, md.Experimenter)
	assert.Equal(t, "2024-08-20T00:00:00-04:00", md.StartTime)
	assert.Equal(t, map[string]string{"imec0": "left dCA1"}, md.ProbeLocations)
	assert.Equal(t, "M", md.Subject["sex"])
	assert.Equal(t, "Mus musculus", md.Subject["species"])
}

func TestMetadata_Vocabulary(t *testing.T) {
	dir := filepath.Join("testdata", "data", "M540", "preprocessed", "M540-2024-08-20")

	_, _, err := execute(t, "", "metadata", dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown experimenter "Bob"`)

	out, _, err := execute(t, "", "metadata", dir, "--vocabulary", filepath.Join("testdata", "bob.toml"), "--format", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "- Builder, Bob")
	require.Contains(t, out, "sex: U")
}

func TestCheck(t *testing.T) {
	root := filepath.Join("testdata", "data")

	out, logs, err := execute(t, "", "check", root, "--workers", "2")
	require.NoError(t, err)
	require.Contains(t, out, "ok   M540-2024-08-20 (4 keys)")
	require.Contains(t, out, "ok   M541-2024-08-20 (10 keys)")
	require.Contains(t, logs, "Discovered sessions.")

	out, _, err = execute(t, "", "check", root, "--enrich")
	requireExitCode(t, err, 1)
	require.Equal(t, "1 of 2 sessions failed", err.Error())
	require.Contains(t, out, `FAIL M540-2024-08-20: unknown experimenter "Bob"`)

	_, _, err = execute(t, "", "check", root, "--enrich", "--vocabulary", filepath.Join("testdata", "bob.toml"))
	require.NoError(t, err)
}

func TestCheck_BrokenSession(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "M1", "preprocessed", "M1-2024-01-02")
	writeFile(t, filepath.Join(dir, "M1_2024_01_02_keys.m"), "ExpKeys.a = 'open;\n")

	out, _, err := execute(t, "", "check", root)
	requireExitCode(t, err, 1)
	require.Contains(t, out, "FAIL M1-2024-01-02:")
}

func TestVocabulary(t *testing.T) {
	out, _, err := execute(t, "", "vocabulary", "--vocabulary", filepath.Join("testdata", "bob.toml"))
	require.NoError(t, err)
	require.Contains(t, out, `time_zone = "America/New_York"`)
	require.Contains(t, out, `Bob = "Builder, Bob"`)
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"invalid log level", []string{"--log-level=loud", "parse"}},
		{"invalid log format", []string{"--log-format=xml", "parse"}},
		{"unknown flag", []string{"parse", "--nope"}},
		{"too many args", []string{"parse", "a", "b"}},
		{"missing dir", []string{"metadata"}},
		{"bad format", []string{"parse", "--format", "toml"}},
		{"bad workers", []string{"check", "testdata", "--workers", "0"}},
		{"unknown command", []string{"bogus"}},
		{"unknown command after flags", []string{"--log-level=warn", "bogus", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, sampleKeys, tt.args...)
			requireExitCode(t, err, 2)
		})
	}
}

func TestRoot_NoArgsPrintsHelp(t *testing.T) {
	out, _, err := execute(t, "")
	require.NoError(t, err)
	require.Contains(t, out, "Usage:")
	require.Contains(t, out, "metadata")
}

func TestUnknownCommand_Message(t *testing.T) {
	_, _, err := execute(t, "", "bogus")
	requireExitCode(t, err, 2)
	require.Equal(t, `unknown command "bogus" for "expkeys"`, err.Error())
}

func TestLogLevel_FiltersRecords(t *testing.T) {
	_, logs, err := execute(t, sampleKeys, "parse")
	require.NoError(t, err)
	require.NotContains(t, logs, "level=DEBUG")

	_, logs, err = execute(t, sampleKeys, "--log-level=DEBUG", "parse")
	require.NoError(t, err)
	require.Contains(t, logs, "level=DEBUG")
}

func TestLogFormatJSON(t *testing.T) {
	_, logs, err := execute(t, sampleKeys, "--log-level=debug", "--log-format=json", "parse")
	require.NoError(t, err)

	line := strings.SplitN(strings.TrimSpace(logs), "\n", 2)[0]
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	require.Equal(t, "DEBUG", record["level"])
}
