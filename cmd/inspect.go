package cmd

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iksnae/vibe-context/internal"
	"github.com/spf13/cobra"
)

var inspectSampleRows int

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [store|index|<database-path>]",
	Short: "Inspect the SQLite session store or retrieval index",
	Long: `Print the tables, row counts, schema and a few sample rows of one of the
SQLite databases vibe-context writes.

  store   the sqlite session store (store.sqlite_path)
  index   the retrieval index (retrieval.db_path, the default)

Embedding columns are summarized by their dimension instead of printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "index"
		if len(args) == 1 {
			target = args[0]
		}

		dbPath := target
		switch target {
		case "index":
			dbPath = cfg.Retrieval.DBPath
		case "store":
			dbPath = cfg.Store.SQLitePath
			if dbPath == "" {
				dbPath = internal.DefaultSQLitePath(cfg.HistoryDir)
			}
		}
		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("database not found: %w", err)
		}
		return inspectDatabase(cmd.OutOrStdout(), dbPath)
	},
}

func inspectDatabase(w io.Writer, dbPath string) error {
	db, err := internal.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tables, err := getTables(db)
	if err != nil {
		return fmt.Errorf("failed to get tables: %w", err)
	}
	if len(tables) == 0 {
		fmt.Fprintln(w, warningStyle.Render("⚠️  No tables found in database"))
		return nil
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("📋 Database: %s", dbPath)))
	fmt.Fprintf(w, "📊 Found %d table(s)\n\n", len(tables))

	for _, table := range tables {
		if err := inspectTable(w, db, table); err != nil {
			fmt.Fprintf(w, "⚠️  Error inspecting table %s: %v\n", table, err)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func getTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

type columnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

func inspectTable(w io.Writer, db *sql.DB, table string) error {
	fmt.Fprintln(w, sectionStyle.Render("📦 Table: "+table))

	var rowCount int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", table)).Scan(&rowCount); err != nil {
		return fmt.Errorf("failed to get row count: %w", err)
	}
	fmt.Fprintf(w, "📊 Rows: %s\n", countStyle.Render(fmt.Sprint(rowCount)))

	columns, err := getTableSchema(db, table)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	fmt.Fprintln(w, "📐 Schema:")
	for _, col := range columns {
		var attrs []string
		if col.NotNull {
			attrs = append(attrs, "NOT NULL")
		}
		if col.PrimaryKey {
			attrs = append(attrs, "[PRIMARY KEY]")
		}
		fmt.Fprintf(w, "  • %s: %s %s\n", col.Name, col.Type, strings.Join(attrs, " "))
	}

	if rowCount > 0 && inspectSampleRows > 0 {
		return showSampleData(w, db, table, columns, inspectSampleRows)
	}
	return nil
}

func getTableSchema(db *sql.DB, table string) ([]columnInfo, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []columnInfo
	for rows.Next() {
		var col columnInfo
		var cid, notNull, pk int
		var defaultValue sql.NullString
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		col.NotNull = notNull == 1
		col.PrimaryKey = pk > 0
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func showSampleData(w io.Writer, db *sql.DB, table string, columns []columnInfo, limit int) error {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = fmt.Sprintf("%q", col.Name)
	}
	rows, err := db.Query(fmt.Sprintf("SELECT %s FROM %q LIMIT %d", strings.Join(names, ", "), table, limit))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	fmt.Fprintf(w, "📄 Sample Data (first %d rows):\n", limit)
	for n := 1; rows.Next(); n++ {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}

		fmt.Fprintf(w, "\n  Row %d:\n", n)
		for i, col := range columns {
			fmt.Fprintf(w, "    %s: %s\n", col.Name, formatCell(col.Name, values[i]))
		}
	}
	return rows.Err()
}

// formatCell renders one value on a single line of at most 200 bytes.
func formatCell(column string, val interface{}) string {
	if val == nil {
		return "<NULL>"
	}
	var s string
	switch v := val.(type) {
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprintf("%v", v)
	}

	if column == "embedding" {
		var vec []float32
		if json.Unmarshal([]byte(s), &vec) == nil {
			return fmt.Sprintf("[%d-dim vector]", len(vec))
		}
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "..."
	}
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVar(&inspectSampleRows, "sample", 3, "Number of sample rows to show")
}
