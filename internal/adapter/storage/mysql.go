package storage

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

// NewMySQLAdapter wraps an open MySQL connection pool. The DSN must carry
// parseTime=true so DATETIME columns scan into time.Time.
func NewMySQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, isDuplicate: isMySQLDuplicate}
}

func isMySQLDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
