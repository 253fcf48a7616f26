package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/erp/procurement/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add vendors table", "add_vendors_table"},
		{"Add-Vendor-Index", "add_vendor_index"},
		{"ADD_COUNTERS", "add_counters"},
		{"add__outbox__retry", "add_outbox_retry"},
		{"Invoice Payments 2", "invoice_payments_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_create_purchase_orders.up.sql":   {},
		"000002_create_purchase_orders.down.sql": {},
		"000010_add_index.up.sql":                {},
		"000001_create_vendors.up.sql":           {},
		"README.md":                              {},
		"notaversion_x.up.sql":                   {},
	}

	entries, err := ListMigrations(fsys)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "000001_create_vendors", entries[0].String())
	assert.Equal(t, uint(2), entries[1].Version)
	assert.Equal(t, "add_index", entries[2].Name)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := ListMigrations(migrations.FS)
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.String()
		_, err := migrations.FS.Open(e.String() + ".down.sql")
		assert.NoError(t, err, "missing down migration for %s", e)
	}
	assert.Equal(t, []string{
		"000001_create_vendors",
		"000002_create_purchase_orders",
		"000003_create_invoices",
		"000004_create_document_counters",
		"000005_create_outbox_events",
	}, names)
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create vendors", "Vendor master data")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_vendors.up.sql"), first.UpPath)

	second, err := CreateMigration(dir, "Add Trust Index", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.Equal(t, filepath.Join(dir, "000002_add_trust_index.down.sql"), second.DownPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "create vendors")
	assert.Contains(t, string(up), "Vendor master data")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")
}

func TestCreateMigration_InvalidName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}
