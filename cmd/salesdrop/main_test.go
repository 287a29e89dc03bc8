package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/SalesDrop/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestExtractLocal(t *testing.T) {
	t.Setenv("SALESDROP_LOG_LEVEL", "error")
	dir := t.TempDir()
	good := writeFile(t, dir, "jan.csv", "date,product,quantity,price\n2024-01-02,Widget,3,2.50\n2024-01-05,Gadget,1,10\n")
	bad := writeFile(t, dir, "notes.csv", "product,quantity\nWidget,3\n")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"extract", "--memory", "--local", good, bad})
	require.NoError(t, cmd.Execute())

	var results []extractResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 2)

	assert.Equal(t, model.StatusSuccess, results[0].Status)
	require.NotNil(t, results[0].Summary)
	assert.Equal(t, int64(4), results[0].Summary.TotalItemsSold)
	assert.InDelta(t, 17.5, results[0].Summary.TotalSales, 1e-9)

	assert.Equal(t, model.StatusFailed, results[1].Status)
	assert.Equal(t, "parse", results[1].Stage)
	assert.NotEmpty(t, results[1].Error)
}

func TestExtractLocal_MissingFile(t *testing.T) {
	t.Setenv("SALESDROP_LOG_LEVEL", "error")
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extract", "--memory", "--local", filepath.Join(t.TempDir(), "nope.csv")})
	assert.Error(t, cmd.Execute())
}

func TestListRejectsBadStatus(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"list", "--memory", "--status", "pending"})
	assert.ErrorContains(t, cmd.Execute(), "invalid status")
}
