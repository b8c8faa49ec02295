package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/fundfolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateSchemeMasterTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		isin TEXT NOT NULL,
		folio TEXT NOT NULL,
		scheme_name TEXT NOT NULL,
		date TEXT NOT NULL,
		kind TEXT NOT NULL,
		units REAL NOT NULL,
		price REAL NOT NULL,
		tax REAL NOT NULL DEFAULT 0,
		source TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(isin, folio, date, kind, units, price)
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_holding ON transactions(isin, folio, date);

	CREATE TABLE IF NOT EXISTS scheme_master (
		isin TEXT PRIMARY KEY,
		scheme_name TEXT NOT NULL,
		last_txn_date TEXT,
		under_asr BOOLEAN NOT NULL DEFAULT FALSE,
		under_stcg BOOLEAN NOT NULL DEFAULT FALSE,
		under_ltcg BOOLEAN NOT NULL DEFAULT FALSE,
		exit_load_days INTEGER NOT NULL DEFAULT 0,
		ltcg_days INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

func migrateSchemeMasterTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='scheme_master'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'scheme_master' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'scheme_master' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'scheme_master' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'scheme_master' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(scheme_master)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'scheme_master'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'scheme_master': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'scheme_master'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'scheme_master': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'scheme_master'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'scheme_master': %v", err)
		}
		return
	}

	if _, ok := columnExists["exit_load_days"]; !ok {
		_, err := DB.Exec("ALTER TABLE scheme_master ADD COLUMN exit_load_days INTEGER NOT NULL DEFAULT 0")
		if err != nil {
			logger.L.Error("Error adding 'exit_load_days' column to 'scheme_master' table", "error", err)
		} else {
			logger.L.Info("Added 'exit_load_days' column to 'scheme_master' table")
		}
	}
	if _, ok := columnExists["ltcg_days"]; !ok {
		_, err := DB.Exec("ALTER TABLE scheme_master ADD COLUMN ltcg_days INTEGER NOT NULL DEFAULT 0")
		if err != nil {
			logger.L.Error("Error adding 'ltcg_days' column to 'scheme_master' table", "error", err)
		} else {
			logger.L.Info("Added 'ltcg_days' column to 'scheme_master' table")
		}
	}
	if _, ok := columnExists["tags"]; !ok {
		_, err := DB.Exec("ALTER TABLE scheme_master ADD COLUMN tags TEXT NOT NULL DEFAULT ''")
		if err != nil {
			logger.L.Error("Error adding 'tags' column to 'scheme_master' table", "error", err)
		} else {
			logger.L.Info("Added 'tags' column to 'scheme_master' table")
		}
	}
}
