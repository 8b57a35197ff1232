package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	gemcert "github.com/powerbrainlabs/diamond-erp-back-end"
	"github.com/powerbrainlabs/diamond-erp-back-end/internal"
)

func runSeed(args []string) error {
	flags := flag.NewFlagSet("seed", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: gemcert-tools seed [options]")
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

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, buildConnString(opts))
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	defer pool.Close()

	types := internal.NewTypeRegistry(pool, opts.tables)
	schemas := internal.NewSchemaRegistry(pool, opts.tables, gemcert.DefaultConfig().Query)
	attributes := internal.NewAttributeCatalog(pool, opts.tables, types)

	seeder := internal.NewSeeder(schemas, attributes, types)
	if err := seeder.Run(ctx); err != nil {
		return err
	}

	fmt.Println("Seed data loaded successfully.")
	return nil
}
