package db

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/sqlite"
)

var (
	dbClient database.IDatabase
)

var sqllist = []struct {
	name string
	sql  string
}{
	{
		name: "init_upload_session_tab",
		sql: `
CREATE TABLE IF NOT EXISTS upload_session_tab (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    object_id   TEXT NOT NULL,
    upload_id   TEXT NOT NULL,
    object_key  TEXT NOT NULL,
    file_size   INTEGER NOT NULL,
    part_count  INTEGER NOT NULL,
    object_md5  TEXT,
    ctime       INTEGER,
    mtime       INTEGER,
    UNIQUE (object_id)
);
		`,
	},
	{
		name: "init_upload_part_tab",
		sql: `
CREATE TABLE IF NOT EXISTS upload_part_tab (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    object_id   TEXT NOT NULL,
    upload_id   TEXT NOT NULL,
    part_number INTEGER NOT NULL,
    source_md5  TEXT,
    etag        TEXT,
    ctime       INTEGER,
    mtime       INTEGER,
    UNIQUE (object_id, upload_id, part_number)
);
		`,
	},
}

func InitDB(file string) error {
	ctx := context.Background()
	db, err := sqlite.New(file, func(db database.IDatabase) error {
		for _, item := range sqllist {
			if _, err := db.ExecContext(ctx, item.sql); err != nil {
				return fmt.Errorf("init sql failed, sql:%s, err:%w", item.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	dbClient = db
	return nil
}

func GetClient() database.IDatabase {
	return dbClient
}
