package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
)

type dbOptions struct {
	host     string
	port     int
	database string
	user     string
	password string
	sslMode  string
	tables   gemcert.TableNames
}

func registerDBFlags(flags *flag.FlagSet, opts *dbOptions) {
	defaults := gemcert.DefaultTableNames()
	flags.StringVar(&opts.host, "db-host", getenvDefault("DB_HOST", "localhost"), "database host")
	flags.IntVar(&opts.port, "db-port", getenvDefaultInt("DB_PORT", 5432), "database port")
	flags.StringVar(&opts.database, "db-name", getenvDefault("DB_NAME", "gemcert"), "database name")
	flags.StringVar(&opts.user, "db-user", getenvDefault("DB_USER", "postgres"), "database user")
	flags.StringVar(&opts.password, "db-password", getenvDefault("DB_PASSWORD", "postgres"), "database password")
	flags.StringVar(&opts.sslMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", "disable"), "database sslmode")
	flags.StringVar(&opts.tables.CategorySchemas, "schema-table", getenvDefault("SCHEMA_TABLE", defaults.CategorySchemas), "category schema table name")
	flags.StringVar(&opts.tables.Attributes, "attribute-table", getenvDefault("ATTRIBUTE_TABLE", defaults.Attributes), "attribute table name")
	flags.StringVar(&opts.tables.CertificateTypes, "type-table", getenvDefault("TYPE_TABLE", defaults.CertificateTypes), "certificate type table name")
	flags.StringVar(&opts.tables.Certifications, "certification-table", getenvDefault("CERTIFICATION_TABLE", defaults.Certifications), "certification table name")
	flags.StringVar(&opts.tables.Counters, "counter-table", getenvDefault("COUNTER_TABLE", defaults.Counters), "certificate counter table name")
	flags.StringVar(&opts.tables.Clients, "client-table", getenvDefault("CLIENT_TABLE", defaults.Clients), "client table name")
}

func runInitDB(args []string) error {
	flags := flag.NewFlagSet("init-db", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: gemcert-tools init-db [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	opts := dbOptions{}
	registerDBFlags(flags, &opts)

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	return initDatabase(opts)
}

func initDatabase(opts dbOptions) error {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, buildConnString(opts))
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := withTx(ctx, conn, func(tx pgx.Tx) error {
		return ensureTables(ctx, tx, opts.tables)
	}); err != nil {
		return err
	}

	fmt.Println("Database initialized successfully.")
	return nil
}

func buildConnString(opts dbOptions) string {
	hostPort := fmt.Sprintf("%s:%d", opts.host, opts.port)

	var userInfo *url.Userinfo
	if opts.password != "" {
		userInfo = url.UserPassword(opts.user, opts.password)
	} else {
		userInfo = url.User(opts.user)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   hostPort,
		Path:   "/" + opts.database,
	}

	q := url.Values{}
	if opts.sslMode != "" {
		q.Set("sslmode", opts.sslMode)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func ensureTables(ctx context.Context, tx pgx.Tx, tables gemcert.TableNames) error {
	schemas := quoteIdentifier(tables.CategorySchemas)
	attributes := quoteIdentifier(tables.Attributes)
	types := quoteIdentifier(tables.CertificateTypes)
	certifications := quoteIdentifier(tables.Certifications)
	counters := quoteIdentifier(tables.Counters)
	clients := quoteIdentifier(tables.Clients)

	ddlSchemas := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		uuid                 UUID PRIMARY KEY,
		name                 TEXT NOT NULL,
		group_name           TEXT NOT NULL,
		description          TEXT NOT NULL DEFAULT '',
		description_template TEXT NOT NULL DEFAULT '',
		fields               JSONB NOT NULL DEFAULT '[]',
		is_active            BOOLEAN NOT NULL DEFAULT TRUE,
		is_deleted           BOOLEAN NOT NULL DEFAULT FALSE,
		created_by           JSONB,
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL
	)`, schemas)
	if _, err := tx.Exec(ctx, ddlSchemas); err != nil {
		return fmt.Errorf("ensure category schema table: %w", err)
	}
	fmt.Printf("Created category schema table: %s\n", tables.CategorySchemas)

	ddlAttributes := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		uuid       UUID PRIMARY KEY,
		group_name TEXT NOT NULL,
		attr_type  TEXT NOT NULL,
		name       TEXT NOT NULL,
		hardness   DOUBLE PRECISION,
		ri         DOUBLE PRECISION,
		sg         DOUBLE PRECISION,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_by JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`, attributes)
	if _, err := tx.Exec(ctx, ddlAttributes); err != nil {
		return fmt.Errorf("ensure attribute table: %w", err)
	}
	fmt.Printf("Created attribute table: %s\n", tables.Attributes)

	ddlTypes := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		uuid          UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		slug          TEXT NOT NULL,
		display_order INTEGER NOT NULL DEFAULT 0,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		is_deleted    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`, types)
	if _, err := tx.Exec(ctx, ddlTypes); err != nil {
		return fmt.Errorf("ensure certificate type table: %w", err)
	}
	fmt.Printf("Created certificate type table: %s\n", tables.CertificateTypes)

	ddlCertifications := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		uuid               UUID PRIMARY KEY,
		certificate_number TEXT NOT NULL,
		cert_type          TEXT NOT NULL,
		client_id          UUID NOT NULL,
		category_id        UUID,
		fields             JSONB NOT NULL DEFAULT '{}',
		photo              TEXT,
		brand_logo         TEXT,
		rear_brand_logo    TEXT,
		is_rejected        BOOLEAN NOT NULL DEFAULT FALSE,
		is_deleted         BOOLEAN NOT NULL DEFAULT FALSE,
		created_by         JSONB,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`, certifications)
	if _, err := tx.Exec(ctx, ddlCertifications); err != nil {
		return fmt.Errorf("ensure certification table: %w", err)
	}
	fmt.Printf("Created certification table: %s\n", tables.Certifications)

	ddlCounters := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		counter_key TEXT PRIMARY KEY,
		seq         BIGINT NOT NULL
	)`, counters)
	if _, err := tx.Exec(ctx, ddlCounters); err != nil {
		return fmt.Errorf("ensure counter table: %w", err)
	}
	fmt.Printf("Created counter table: %s\n", tables.Counters)

	ddlClients := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		uuid       UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`, clients)
	if _, err := tx.Exec(ctx, ddlClients); err != nil {
		return fmt.Errorf("ensure client table: %w", err)
	}
	fmt.Printf("Created client table: %s\n", tables.Clients)

	indexes := []struct {
		name  string
		table string
		stmt  string
	}{
		{
			makeIndexName(tables.CategorySchemas, "name_unique"), schemas,
			`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (lower(name)) WHERE is_deleted = FALSE`,
		},
		{
			makeIndexName(tables.CategorySchemas, "group_active"), schemas,
			`CREATE INDEX IF NOT EXISTS %s ON %s (group_name, is_active) WHERE is_deleted = FALSE`,
		},
		{
			makeIndexName(tables.Attributes, "name_unique"), attributes,
			`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (group_name, attr_type, lower(name)) WHERE is_deleted = FALSE`,
		},
		{
			makeIndexName(tables.CertificateTypes, "slug_unique"), types,
			`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (slug)`,
		},
		{
			makeIndexName(tables.Certifications, "number_unique"), certifications,
			`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (certificate_number) WHERE is_deleted = FALSE`,
		},
		{
			makeIndexName(tables.Certifications, "type"), certifications,
			`CREATE INDEX IF NOT EXISTS %s ON %s (cert_type) WHERE is_deleted = FALSE`,
		},
		{
			makeIndexName(tables.Certifications, "created_at"), certifications,
			`CREATE INDEX IF NOT EXISTS %s ON %s (created_at DESC) WHERE is_deleted = FALSE`,
		},
	}

	for _, idx := range indexes {
		stmt := fmt.Sprintf(idx.stmt, quoteIdentifier(idx.name), idx.table)
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}

	return nil
}

func withTx(ctx context.Context, conn *pgxpool.Conn, fn func(pgx.Tx) error) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("%w; rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func quoteIdentifier(name string) string {
	return pgx.Identifier(splitIdentifier(name)).Sanitize()
}

func splitIdentifier(name string) []string {
	parts := strings.Split(name, ".")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return []string{name}
	}
	return result
}

func makeIndexName(table string, suffix string) string {
	base := strings.ReplaceAll(table, ".", "_")
	base = strings.ReplaceAll(base, `"`, "")
	return fmt.Sprintf("%s_%s_idx", base, suffix)
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvDefaultInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
