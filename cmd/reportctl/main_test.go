package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"order-analytics/internal/export"
	"order-analytics/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture creates a SQLite database holding one customer with two orders
// and points the configuration at it. unitsSold is used for the second order.
func writeFixture(t *testing.T, unitsSold int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analytics.db")

	s, err := store.NewStore(store.DriverSQLite, path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	db := s.GetDB()
	for _, stmt := range []string{
		`CREATE TABLE customers (customer_id INTEGER PRIMARY KEY, signup_date TIMESTAMP, customer_segment TEXT, region TEXT, age_group TEXT)`,
		`CREATE TABLE products (product_id INTEGER PRIMARY KEY, product_name TEXT, category TEXT, unit_cost REAL)`,
		`CREATE TABLE marketing_campaigns (campaign_id INTEGER PRIMARY KEY, channel TEXT, campaign_name TEXT, start_date TIMESTAMP, end_date TIMESTAMP, total_budget REAL)`,
		`CREATE TABLE orders (order_id TEXT PRIMARY KEY, customer_id INTEGER, product_id INTEGER, campaign_id INTEGER, order_date TIMESTAMP,
			units_sold INTEGER, revenue REAL, discount_pct REAL, marketing_spend REAL, returned BOOLEAN, region TEXT, payment_method TEXT)`,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	signup := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	ordered := time.Date(2024, time.November, 4, 8, 0, 0, 0, time.UTC)
	db.MustExecContext(ctx, `INSERT INTO customers VALUES (?, ?, ?, ?, ?)`, 1, signup, "Regular", "West", "18-24")
	db.MustExecContext(ctx, `INSERT INTO products VALUES (?, ?, ?, ?)`, 7, "Kettle", "Home & Kitchen", 12.5)
	db.MustExecContext(ctx, `INSERT INTO marketing_campaigns VALUES (?, ?, ?, ?, ?, ?)`, 1, "Email", "Launch", signup, ordered, 1000.0)
	db.MustExecContext(ctx, `INSERT INTO orders VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"ORD1", 1, 7, 1, ordered, 2, 80.0, 5.0, 3.0, false, "West", "UPI")
	db.MustExecContext(ctx, `INSERT INTO orders VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"ORD2", 1, 7, nil, ordered.AddDate(0, 0, 10), unitsSold, 40.0, nil, 0.0, false, "West", "UPI")

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", store.DriverSQLite)
	t.Setenv("DATABASE_URL", path)
	t.Setenv("REPORT_AS_OF", "2024-12-15")
}

func execute(args ...string) (stdout, stderr string, err error) {
	runFlags = runOptions{format: export.FormatJSON}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestList(t *testing.T) {
	stdout, _, err := execute("list")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "NAME"))
	assert.Contains(t, stdout, "top_products")
	assert.Contains(t, stdout, "day_of_week_aov")
}

func TestRunOneReportToStdout(t *testing.T) {
	writeFixture(t, 1)

	stdout, _, err := execute("run", "top_products")
	require.NoError(t, err)

	var res struct {
		Report   string `json:"report"`
		AsOf     string `json:"as_of"`
		RowCount int    `json:"row_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "top_products", res.Report)
	assert.Equal(t, "2024-12-15", res.AsOf)
	assert.Equal(t, 1, res.RowCount)

	stdout, _, err = execute("run", "top_products", "--format", "csv", "--as-of", "2024-11-10")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "product_id,product_name"))
	assert.True(t, strings.HasPrefix(lines[1], "7,Kettle,Home & Kitchen,1,"))
}

func TestRunAllToFolder(t *testing.T) {
	writeFixture(t, 1)
	dir := t.TempDir()

	_, stderr, err := execute("run", "all", "--output", dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 14)
	for _, e := range entries {
		assert.Equal(t, ".json", filepath.Ext(e.Name()))
	}
	assert.Contains(t, stderr, "Exported top_products (1 rows)")
}

func TestRunAllAsCSVNeedsOutput(t *testing.T) {
	writeFixture(t, 1)

	_, _, err := execute("run", "all", "-f", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs --output")
}

func TestRunRejectsBadInput(t *testing.T) {
	writeFixture(t, 1)

	_, _, err := execute("run", "churn")
	assert.ErrorContains(t, err, "unknown report")

	_, _, err = execute("run", "top_products", "--as-of", "15/12/2024")
	assert.ErrorContains(t, err, "invalid as_of")

	_, _, err = execute("run", "top_products", "-f", "xlsx")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	writeFixture(t, 1)

	stdout, _, err := execute("validate")
	require.NoError(t, err)
	assert.Equal(t, "Snapshot OK: 2 orders, 1 customers, 1 products, 1 campaigns\n", stdout)
}

func TestValidateReportsIssues(t *testing.T) {
	writeFixture(t, 0)

	stdout, _, err := execute("validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 issue(s)")
	assert.Equal(t, "order ORD2: units_sold 0 < 1\n", stdout)

	// The audit still runs over data that fails validation.
	stdout, _, err = execute("run", "data_quality")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"report": "data_quality"`)
}
