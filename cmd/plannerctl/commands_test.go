package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api/auth"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSlotCommand(t *testing.T) {
	items := `[{"id": "a", "name": "A", "day": 2, "timeSlot": "Morning", "StartTime": 480, "EndTime": 600}]`

	out, err := run(t, items, "slot", "--day", "2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"startTime": 600, "endTime": 630, "timeSlot": "Morning"}`, out)

	_, err = run(t, `[]`, "slot", "--day", "0")
	assert.Error(t, err)

	full := `[{"id": "a", "name": "A", "day": 1, "timeSlot": "Morning", "StartTime": 480, "EndTime": 1380}]`
	_, err = run(t, full, "slot")
	assert.ErrorContains(t, err, "no free slot")
}

func TestDiffCommand(t *testing.T) {
	remote := writeFile(t, "remote.json", `{"itineraryPOIs": [{"id": "p1", "place_id": "g1", "name": "A", "day": 1, "timeSlot": "Morning", "StartTime": 540, "EndTime": 600}], "unusedPOIs": []}`)
	local := writeFile(t, "local.json", `{"itineraryPOIs": [{"id": "p1", "place_id": "g1", "name": "A", "day": 1, "timeSlot": "Evening", "StartTime": 1080, "EndTime": 1140}], "unusedPOIs": []}`)

	out, err := run(t, "", "diff", local, remote)
	require.NoError(t, err)
	assert.Contains(t, out, `"schedulingUpdates": [`)
	assert.Contains(t, out, `"StartTime": 1080`)

	_, err = run(t, "", "diff", local, filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "missing.json")
}

func TestCategoriesCommand(t *testing.T) {
	out, err := run(t, `{"city": "porto", "interests": [], "foodPreferences": []}`, "categories", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "catering.restaurant")
	assert.Contains(t, out, "tourism,entertainment")

	_, err = run(t, `{"city": `, "categories")
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	food := writeFile(t, "food.json", `[{"id": "g-cafe", "place_id": "g-cafe", "name": "Cafe Majestic"}]`)
	doc := `{"Day 1": {"Morning": {"POI": {"g-cafe": {"name": "Cafe Majestic", "type": "cafe", "StartTime": "8:00", "EndTime": "9:00"}}}},
		"Unused": {"Attractions": [], "Restaurants": []}}`

	out, err := run(t, doc, "parse", "--days", "1", "--food", food)
	require.NoError(t, err)
	assert.Contains(t, out, `"StartTime": 480`)

	out, err = run(t, "not json", "parse", "--food", food)
	require.NoError(t, err)
	assert.Contains(t, out, `"unusedPOIs": [`)
	assert.Contains(t, out, "g-cafe")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRETKEY", "cli-secret")

	out, err := run(t, "", "token", "--user", "u-42", "--ttl", "5m")
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(strings.TrimSpace(out), config.JWTConfig{SecretKey: "cli-secret"})
	require.NoError(t, err)
	assert.Equal(t, "u-42", claims.UserID)

	_, err = run(t, "", "token")
	assert.ErrorContains(t, err, "--user")
}
