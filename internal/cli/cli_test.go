package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/modewatch/internal/config"
	"github.com/yourusername/modewatch/internal/database"
	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/output"
	"github.com/yourusername/modewatch/internal/session"
	"github.com/yourusername/modewatch/internal/state"
	"gopkg.in/yaml.v3"
)

const sampleLog = `:irc.example.net 001 me :Welcome
:irc.example.net 005 me CHANMODES=beI,k,l,imnpst PREFIX=(ov)@+ :are supported by this server
:me!u@h JOIN #go
:irc.example.net 353 me = #go :@me alice bob
:irc.example.net 324 me #go +nt
:op!o@h MODE #go +v bob
:op!o@h MODE #go +k
`

// writeTestConfig points the global flags at a config and database under a temp dir
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "modewatch.toml")
	content := fmt.Sprintf("[session]\nnickname = \"me\"\n\n[logging]\nerror_log = %q\n\n[database]\npath = %q\n",
		filepath.Join(dir, "error.log"), filepath.Join(dir, "modewatch.db"))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	configPath, dbPath = path, ""
	t.Cleanup(func() { configPath, dbPath = "config/modewatch.toml", "" })
	return dir
}

func TestFeedLines_CountsFailures(t *testing.T) {
	dir := t.TempDir()
	out, err := output.NewOutput(output.NopLogger{}, filepath.Join(dir, "error.log"), 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	sess, err := session.New(config.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	stats := feedLines(context.Background(), strings.NewReader(sampleLog), sess.HandleLine, errors.NewErrorHandler(out))
	if stats.lines != 7 {
		t.Errorf("lines = %d, want 7", stats.lines)
	}
	if stats.failed != 1 {
		t.Errorf("failed = %d, want 1 for the +k without key", stats.failed)
	}

	logged, err := os.ReadFile(filepath.Join(dir, "error.log"))
	if err != nil {
		t.Fatalf("error log not written: %v", err)
	}
	for _, want := range []string{"StructuralParseError", "line 7", ":op!o@h MODE #go +k"} {
		if !strings.Contains(string(logged), want) {
			t.Errorf("error log = %q, want %q", logged, want)
		}
	}
}

func TestFeedLines_StopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	stats := feedLines(ctx, strings.NewReader(sampleLog), func(string) error {
		calls++
		return nil
	}, nil)
	if calls != 0 || stats.lines != 0 {
		t.Errorf("handled %d lines after cancel, want 0", calls)
	}
}

func TestWriteSnapshot(t *testing.T) {
	snap := state.Snapshot{
		Channels: []state.ChannelSnapshot{{Name: "#go", Modes: "+nt", Members: []string{"@me", "+bob"}}},
		Clients:  []state.ClientSnapshot{{Nick: "me", Modes: "+i"}},
	}

	var jsonBuf bytes.Buffer
	if err := writeSnapshot(&jsonBuf, snap, "json"); err != nil {
		t.Fatalf("writeSnapshot(json) error = %v", err)
	}
	var fromJSON state.Snapshot
	if err := json.Unmarshal(jsonBuf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if fromJSON.Channels[0].Members[1] != "+bob" {
		t.Errorf("json members = %v", fromJSON.Channels[0].Members)
	}

	var yamlBuf bytes.Buffer
	if err := writeSnapshot(&yamlBuf, snap, "yaml"); err != nil {
		t.Fatalf("writeSnapshot(yaml) error = %v", err)
	}
	if !strings.Contains(yamlBuf.String(), "name: '#go'") && !strings.Contains(yamlBuf.String(), `name: "#go"`) {
		t.Errorf("yaml = %q, want quoted channel name", yamlBuf.String())
	}
	var fromYAML state.Snapshot
	if err := yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if fromYAML.Clients[0].Modes != "+i" {
		t.Errorf("yaml clients = %+v", fromYAML.Clients)
	}
}

func TestFormatRecord(t *testing.T) {
	rec := database.EventRecord{
		Kind:      "ChannelModeChanged",
		Mode:      "+ov",
		Params:    []string{"alice", "bob"},
		CreatedAt: time.Now(),
	}
	got := formatRecord(rec)
	if !strings.Contains(got, "server") || !strings.HasSuffix(got, "+ov  alice bob") {
		t.Errorf("formatRecord() = %q", got)
	}

	rec.Actor, rec.Params = "\x02op\x02", []string{"\x1b[2Jalice"}
	got = formatRecord(rec)
	if strings.ContainsAny(got, "\x02\x1b") || !strings.Contains(got, "op  +ov  ?[2Jalice") {
		t.Errorf("formatRecord() = %q, want control codes removed", got)
	}
}

func TestSnapshotCommand(t *testing.T) {
	dir := writeTestConfig(t)
	input := filepath.Join(dir, "raw.log")
	if err := os.WriteFile(input, []byte(sampleLog), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetArgs([]string{"snapshot", input, "--format", "json"})
	t.Cleanup(func() { RootCmd.SetOut(nil); RootCmd.SetArgs(nil) })

	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var snap state.Snapshot
	if err := json.Unmarshal(buf.Bytes(), &snap); err != nil {
		t.Fatalf("output is not json: %v\n%s", err, buf.String())
	}
	if len(snap.Channels) != 1 || snap.Channels[0].Modes != "+nt" {
		t.Fatalf("channels = %+v, want #go +nt", snap.Channels)
	}
	want := "alice,+bob,@me"
	if got := strings.Join(snap.Channels[0].Members, ","); got != want {
		t.Errorf("members = %q, want %q", got, want)
	}
}
