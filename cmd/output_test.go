package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOutput(t *testing.T) {
	v := map[string]any{"location": "Austin, TX", "max_price": 600000}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeOutput(&buf, "json", v))
		assert.JSONEq(t, `{"location":"Austin, TX","max_price":600000}`, buf.String())
		assert.Contains(t, buf.String(), "\n  ")
	})

	t.Run("default is json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeOutput(&buf, "", v))
		assert.True(t, json.Valid(buf.Bytes()))
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeOutput(&buf, "YAML", v))
		assert.Contains(t, buf.String(), "location: Austin, TX")
		assert.Contains(t, buf.String(), "max_price: 600000")
	})

	t.Run("unknown", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeOutput(&buf, "xml", v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown output format")
	})
}

func TestLoadHistory(t *testing.T) {
	dir := t.TempDir()

	t.Run("empty path", func(t *testing.T) {
		turns, err := loadHistory("")
		require.NoError(t, err)
		assert.Nil(t, turns)
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "history.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- role: user\n  content: I want to live in Austin\n- role: assistant\n  content: What is your budget?\n"), 0o600))

		turns, err := loadHistory(path)
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, "user", turns[0].Role)
		assert.Equal(t, "What is your budget?", turns[1].Content)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "history.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"role":"user","content":"condo in Denver"}]`), 0o600))

		turns, err := loadHistory(path)
		require.NoError(t, err)
		require.Len(t, turns, 1)
		assert.Equal(t, "condo in Denver", turns[0].Content)
	})

	t.Run("bad role", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- role: system\n  content: hi\n"), 0o600))

		_, err := loadHistory(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "role must be user or assistant")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadHistory(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestAffordCmd(t *testing.T) {
	affordPrice, affordIncome, affordFormat = 500000, 150000, "json"
	t.Cleanup(func() { affordPrice, affordIncome, affordFormat = 0, 0, "json" })

	var buf bytes.Buffer
	affordCmd.SetOut(&buf)
	t.Cleanup(func() { affordCmd.SetOut(nil) })

	require.NoError(t, affordCmd.RunE(affordCmd, nil))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.InDelta(t, 400000.0, got["loan_amount"], 0.001)
	assert.InDelta(t, 100000.0, got["down_payment"], 0.001)
	assert.Contains(t, got, "affordable")
	assert.Contains(t, got, "debt_to_income_ratio")
}

func TestAffordCmd_InvalidInput(t *testing.T) {
	affordPrice, affordIncome = 0, 100000
	t.Cleanup(func() { affordPrice, affordIncome = 0, 0 })

	err := affordCmd.RunE(affordCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
}

func TestRecommendCmd_InvalidInput(t *testing.T) {
	t.Cleanup(func() { recommendQuery, recommendIncome = "", 0 })

	recommendQuery, recommendIncome = "  ", 0
	err := recommendCmd.RunE(recommendCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--query is required")

	recommendQuery, recommendIncome = "3 bed in Austin", -1
	err = recommendCmd.RunE(recommendCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--income must not be negative")
}
