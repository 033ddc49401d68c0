package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Locolm/ai-mail-reader/internal/config"
	"github.com/Locolm/ai-mail-reader/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigPath_Priority(t *testing.T) {
	t.Setenv(envConfig, "")

	assert.Equal(t, "/custom/config.yaml", getConfigPath("/custom/config.yaml"))

	t.Setenv(envConfig, "/env/config.yaml")
	assert.Equal(t, "/env/config.yaml", getConfigPath(""))

	t.Setenv(envConfig, "")
	assert.Contains(t, getConfigPath(""), "config.yaml")
}

func TestGetCredentialsPath_Priority(t *testing.T) {
	t.Setenv(envCredentials, "")

	assert.Equal(t, "/custom/creds.json", getCredentialsPath("/custom/creds.json", "/config/creds.json"))

	t.Setenv(envCredentials, "/env/creds.json")
	assert.Equal(t, "/env/creds.json", getCredentialsPath("", "/config/creds.json"))

	t.Setenv(envCredentials, "")
	assert.Equal(t, "/config/creds.json", getCredentialsPath("", "/config/creds.json"))
	assert.Contains(t, getCredentialsPath("", ""), "credentials.json")
}

func TestGetTokenPath_Priority(t *testing.T) {
	t.Setenv(envToken, "")

	assert.Equal(t, "/custom/token.json", getTokenPath("/custom/token.json", "/config/token.json"))

	t.Setenv(envToken, "/env/token.json")
	assert.Equal(t, "/env/token.json", getTokenPath("", "/config/token.json"))

	t.Setenv(envToken, "")
	assert.Equal(t, "/config/token.json", getTokenPath("", "/config/token.json"))
	assert.Contains(t, getTokenPath("", ""), "token.json")
}

func TestResolvePath_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	t.Setenv(envToken, "")

	got := getTokenPath("", "~/tokens/token.json")
	assert.Equal(t, filepath.Join(home, "tokens", "token.json"), got)
	assert.NotContains(t, got, "~")
}

func TestLoadConfig_KeyboardFlagOverridesMode(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("input_mode: voice\ncredentials: /from/config.json\n"), 0o600))
	t.Setenv(envCredentials, "")
	t.Setenv(envToken, "")

	cfg, err := loadConfig(&rootOptions{configPath: cfgPath})
	require.NoError(t, err)
	assert.Equal(t, config.InputModeVoice, cfg.InputMode)
	assert.Equal(t, "/from/config.json", cfg.Credentials)

	cfg, err = loadConfig(&rootOptions{configPath: cfgPath, keyboard: true, credentials: "/flag.json"})
	require.NoError(t, err)
	assert.Equal(t, config.InputModeKeyboard, cfg.InputMode)
	assert.Equal(t, "/flag.json", cfg.Credentials)
}

func executeRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := executeRoot(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mail-reader")
	assert.Contains(t, out, "Go version:")
}

func TestSetupCommand_CreatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "conf", "config.yaml")
	credPath := filepath.Join(dir, "credentials.json")
	tokenPath := filepath.Join(dir, "token.json")

	out, err := executeRoot(t, "\n", "setup", "--config", cfgPath, "--credentials", credPath, "--token", tokenPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Identifiants manquants : "+credPath)
	assert.Contains(t, out, "Configuration créée")
	assert.FileExists(t, cfgPath)

	cfg, err := config.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Gmail.Query, cfg.Gmail.Query)
}

func TestSetupCommand_Declined(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.json"), []byte("{}"), 0o600))

	out, err := executeRoot(t, "non\n", "setup", "--config", cfgPath,
		"--credentials", filepath.Join(dir, "credentials.json"), "--token", filepath.Join(dir, "token.json"))
	require.NoError(t, err)

	assert.Contains(t, out, "Identifiants trouvés")
	assert.Contains(t, out, "Configuration non créée")
	assert.NoFileExists(t, cfgPath)
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("history:\n  path: "+dbPath+"\n"), 0o600))

	out, err := executeRoot(t, "", "history", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Aucun historique.")

	ctx := context.Background()
	store, err := db.Open(ctx, dbPath)
	require.NoError(t, err)
	ledger := db.NewReadLogStore(store)
	require.NoError(t, ledger.Record(ctx, db.ReadLogEntry{
		ThreadID: "t1", Subject: "Facture de mars", Sender: "Alice", Success: true,
		MarkedAt: time.Date(2025, 3, 4, 10, 0, 0, 0, time.Local),
	}))
	require.NoError(t, ledger.Record(ctx, db.ReadLogEntry{
		ThreadID: "t2", Subject: "Réunion", Sender: "Bob", Error: "forbidden",
		MarkedAt: time.Date(2025, 3, 5, 9, 30, 0, 0, time.Local),
	}))
	require.NoError(t, store.Close())

	out, err = executeRoot(t, "", "history", "--config", cfgPath, "--limit", "5")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "2025-03-05 09:30"), "newest first")
	assert.Contains(t, lines[0], "échec: forbidden")
	assert.Contains(t, lines[1], "Facture de mars")
	assert.True(t, strings.HasSuffix(lines[1], "Alice  ok"))
}

func TestRootCommand_MissingCredentials(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_file: "+filepath.Join(dir, "reader.log")+"\n"), 0o600))

	_, err := executeRoot(t, "", "--config", cfgPath, "--credentials", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials file not found")
}

func TestPrintHistory_Empty(t *testing.T) {
	var out bytes.Buffer
	printHistory(&out, nil)
	assert.Equal(t, "Aucun historique.\n", out.String())
}
