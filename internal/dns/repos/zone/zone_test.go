package zone

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/domain"
)

const testJSON = `{
	"$origin": "Example.COM.",
	"$ttl": 600,
	"a": [
		{"name": "@", "ttl": 400, "value": "93.184.216.34"},
		{"name": "@", "value": "93.184.216.35"}
	],
	"ns": [
		{"host": "ns1.example.com."}
	]
}
`

const testYAML = `
$origin: example.org
a:
  - ttl: 60
    value: 10.0.0.1
`

const testTOML = `"$origin" = "example.net."

[[a]]
ttl = 120
value = "192.0.2.7"

[[a]]
value = "192.0.2.8"
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "com.json", testJSON)
	writeFile(t, dir, "org.yaml", testYAML)
	writeFile(t, dir, "net.toml", testTOML)
	writeFile(t, dir, "README.md", "not a zone")

	zones, err := LoadDirectory(dir, log.NewNoopLogger())
	require.NoError(t, err)
	require.Len(t, zones, 3)

	com := zones["example.com"]
	assert.Equal(t, "example.com", com.Origin)
	assert.Equal(t, []domain.Record{
		{TTL: 400, Value: "93.184.216.34"},
		{TTL: 600, Value: "93.184.216.35"},
	}, com.Records["a"])
	_, hasNS := com.Records["ns"]
	assert.False(t, hasNS, "only address records are loaded")

	assert.Equal(t, []domain.Record{{TTL: 60, Value: "10.0.0.1"}}, zones["example.org"].Records["a"])
	assert.Equal(t, []domain.Record{
		{TTL: 120, Value: "192.0.2.7"},
		{TTL: DefaultTTL, Value: "192.0.2.8"},
	}, zones["example.net"].Records["a"])

	for origin, z := range zones {
		assert.Equal(t, origin, z.Origin, "zone is stored under its own origin")
	}
}

func TestLoadDirectory_Empty(t *testing.T) {
	zones, err := LoadDirectory(t.TempDir(), log.NewNoopLogger())
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestLoadDirectory_RecordTags(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "z.json", `{
  "$origin": "tags.example.com",
  "A": [{"value": "10.1.1.1"}],
  "mx": [{"value": "mail.tags.example.com."}],
  "txt": [{"value": "v=spf1 -all"}]
}`)

	zones, err := LoadDirectory(dir, log.NewNoopLogger())
	require.NoError(t, err)
	z := zones["tags.example.com"]
	assert.Equal(t, []domain.Record{{TTL: DefaultTTL, Value: "10.1.1.1"}}, z.Records["a"])
	assert.Len(t, z.Records, 1)
	assert.Equal(t, 1, z.Count())
}

func TestLoadDirectory_MergesSameOrigin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"$origin": "example.com", "a": [{"value": "1.1.1.1"}]}`)
	writeFile(t, dir, "b.json", `{"$origin": "example.com.", "a": [{"value": "2.2.2.2"}]}`)

	zones, err := LoadDirectory(dir, log.NewNoopLogger())
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, []domain.Record{
		{TTL: DefaultTTL, Value: "1.1.1.1"},
		{TTL: DefaultTTL, Value: "2.2.2.2"},
	}, zones["example.com"].Records["a"])
}

func TestLoadDirectory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		file    string
	}{
		{"missing origin", `{"a": [{"value": "1.2.3.4"}]}`, "z.json"},
		{"bad address", `{"$origin": "example.com", "a": [{"value": "1.2.3.400"}]}`, "z.json"},
		{"missing value", `{"$origin": "example.com", "a": [{"ttl": 5}]}`, "z.json"},
		{"negative ttl", `{"$origin": "example.com", "a": [{"ttl": -1, "value": "1.2.3.4"}]}`, "z.json"},
		{"negative default ttl", `{"$origin": "example.com", "$ttl": -5, "a": []}`, "z.json"},
		{"public suffix origin", `{"$origin": "co.uk", "a": [{"value": "1.2.3.4"}]}`, "z.json"},
		{"malformed json", `{"$origin": `, "z.json"},
		{"malformed yaml", "$origin: example.com\na:\n\t- value: 1.2.3.4", "z.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tt.file, tt.content)
			_, err := LoadDirectory(dir, log.NewNoopLogger())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfig), "got %v", err)
		})
	}
}

func TestLoadDirectory_Unreadable(t *testing.T) {
	_, err := LoadDirectory(filepath.Join(t.TempDir(), "missing"), log.NewNoopLogger())
	assert.True(t, errors.Is(err, domain.ErrConfig))

	dir := t.TempDir()
	writeFile(t, dir, "file.json", "{}")
	_, err = LoadDirectory(filepath.Join(dir, "file.json"), log.NewNoopLogger())
	assert.True(t, errors.Is(err, domain.ErrConfig))
}

func TestLoadDirectory_Nested(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "internal")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, sub, "lan.json", `{"$origin": "lan.example.com", "a": [{"value": "192.168.1.1"}]}`)

	zones, err := LoadDirectory(dir, log.NewNoopLogger())
	require.NoError(t, err)
	assert.Contains(t, zones, "lan.example.com")
}
