// Package factory assembles the certification engine from a configuration
// and a database pool. It is the entry point for embedding the engine in
// another service.
//
// Usage:
//
//	config := gemcert.DefaultConfig()
//	eng, err := factory.NewEngine(config, pool, store)
//	if err != nil {
//	    // handle error
//	}
//	result, err := eng.Issuer.Issue(ctx, req)
package factory

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
	"github.com/powerbrainlabs/diamond-erp-back-end/internal"
)

// Engine bundles the wired services of the certification engine. All fields
// are the public interfaces, so callers can swap individual services in tests.
type Engine struct {
	Types        gemcert.TypeRegistry
	Schemas      gemcert.SchemaRegistry
	Attributes   gemcert.AttributeCatalog
	Clients      gemcert.ClientDirectory
	Forms        gemcert.FormProvider
	Issuer       gemcert.Issuer
	Certificates gemcert.CertificateReader

	seeder *internal.Seeder
}

// queryPool is the subset of pgxpool.Pool needed for table discovery.
type queryPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// tableCollector lists the base tables visible in the public schema. Package
// variable so tests can substitute a fake collector.
var tableCollector func(pool queryPool) ([]string, error) = collectTablesFromPool

// NewEngine verifies that the engine's tables exist and wires up every
// service against the shared pool and object store.
func NewEngine(config *gemcert.Config, pool *pgxpool.Pool, store gemcert.ObjectStore) (*Engine, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	existing, err := tableCollector(pool)
	if err != nil {
		return nil, err
	}
	for _, name := range requiredTables(config.Database.TableNames) {
		if !slices.Contains(existing, name) {
			return nil, fmt.Errorf("required table %q is missing; run gemcert-tools init-db first", name)
		}
	}

	tables := config.Database.TableNames
	types := internal.NewTypeRegistry(pool, tables)
	schemas := internal.NewSchemaRegistry(pool, tables, config.Query)
	attributes := internal.NewAttributeCatalog(pool, tables, types)
	clients := internal.NewClientDirectory(pool, tables)
	counters := internal.NewPGCounterStore(pool, tables)
	allocator := internal.NewNumberAllocator(counters, config.Numbering)
	repo := internal.NewCertificateRepo(pool, tables, config.Query)
	issuance := internal.NewIssuanceService(schemas, types, clients, store, repo, allocator, config.Storage, config.Query)
	forms := internal.NewFormProvider(schemas, internal.NewOptionResolver(attributes))

	return &Engine{
		Types:        types,
		Schemas:      schemas,
		Attributes:   attributes,
		Clients:      clients,
		Forms:        forms,
		Issuer:       issuance,
		Certificates: issuance,
		seeder:       internal.NewSeeder(schemas, attributes, types),
	}, nil
}

// Seed installs the default certificate types, attributes and category
// schemas. Safe to call on every startup; sections with existing data are
// skipped.
func (e *Engine) Seed(ctx context.Context) error {
	return e.seeder.Run(ctx)
}

func requiredTables(tables gemcert.TableNames) []string {
	return []string{
		tables.CategorySchemas,
		tables.Attributes,
		tables.CertificateTypes,
		tables.Certifications,
		tables.Counters,
		tables.Clients,
	}
}

func collectTablesFromPool(pool queryPool) ([]string, error) {
	rows, err := pool.Query(context.Background(), `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`)
	if err != nil {
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table rows: %w", err)
	}
	return tables, nil
}
