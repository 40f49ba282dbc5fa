package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const extractionsTable = "extractions"

// Migrate creates the extraction history schema when missing.
func Migrate(ctx context.Context, db *DB) error {
	d := db.Dialect()
	idType, timeType, textType := "uuid", "timestamptz", "text"
	if d == dialect.SQLite {
		idType, timeType = "text", "datetime"
	}

	b := entsql.Dialect(d)
	stmts := []entsql.Querier{
		b.CreateTable(extractionsTable).IfNotExists().
			Columns(
				b.Column("id").Type(idType).Attr("NOT NULL"),
				b.Column("file_name").Type(textType).Attr("NOT NULL"),
				b.Column("file_path").Type(textType),
				b.Column("content_hash").Type(textType).Attr("NOT NULL"),
				b.Column("mime_type").Type(textType).Attr("NOT NULL"),
				b.Column("size_bytes").Type("bigint").Attr("NOT NULL"),
				b.Column("status").Type(textType).Attr("NOT NULL"),
				b.Column("started_at").Type(timeType).Attr("NOT NULL"),
				b.Column("finished_at").Type(timeType),
				b.Column("source_kind").Type(textType),
				b.Column("strategy").Type(textType),
				b.Column("confidence").Type("integer"),
				b.Column("page_count").Type("integer"),
				b.Column("processing_time_ms").Type("bigint"),
				b.Column("text").Type(textType),
				b.Column("warnings").Type(textType),
				b.Column("error_kind").Type(textType),
				b.Column("error_message").Type(textType),
			).
			PrimaryKey("id"),
		b.CreateIndex("extractions_content_hash").IfNotExists().Table(extractionsTable).Columns("content_hash"),
		b.CreateIndex("extractions_started_at").IfNotExists().Table(extractionsTable).Columns("started_at"),
	}

	for _, s := range stmts {
		query, args := s.Query()
		if err := db.Driver.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
