package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mickamy/schemagen/internal/config"
	"github.com/mickamy/schemagen/internal/gen"
	"github.com/mickamy/schemagen/internal/rpc"
	"github.com/mickamy/schemagen/internal/schema"
	"github.com/mickamy/schemagen/orm"
)

var version = "dev"

const (
	name          = "schemagen"
	defaultOutput = "./query"
)

func main() {
	schemaPath := flag.String("schema", "schema.prisma", "path to the schema file")
	generator := flag.String("generator", "", "generator block to run (default: the first one)")
	output := flag.String("output", "", "output path (overrides the generator's output)")
	migrate := flag.Bool("migrate", false, "create the schema's tables on the datasource instead of generating code")
	debug := flag.Bool("debug", false, "log SQL statements executed by -migrate")
	rpcMode := flag.Bool("rpc", false, "serve the generator JSON-RPC protocol on stdin/stderr")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(name, version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *rpcMode {
		// stderr carries protocol responses.
		log.SetOutput(os.Stdout)
		if err := serveRPC(ctx); err != nil {
			log.Fatalf("rpc: %v", err)
		}
		return
	}

	s, err := schema.Load(*schemaPath)
	if err != nil {
		log.Fatalf("load schema: %v", err)
	}
	dir := filepath.Dir(*schemaPath)

	if *migrate {
		if err := runMigrate(ctx, s, dir, *debug); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	g := s.Generator(*generator)
	if g == nil {
		log.Fatalf("generator %q not found in %s", *generator, *schemaPath)
	}
	out, err := gen.OutputFor(g, dir, *output)
	if err != nil {
		log.Fatalf("output: %v", err)
	}
	paths, err := gen.Generate(s, out)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	for _, p := range paths {
		fmt.Printf("%s: wrote %s\n", name, p)
	}
}

func serveRPC(ctx context.Context) error {
	g := &rpc.Generator{
		Name:          name,
		DefaultOutput: defaultOutput,
		Written:       func(p string) { log.Printf("%s: wrote %s", name, p) },
	}
	return rpc.Serve(ctx, os.Stdin, os.Stderr, name, g) //nolint:wrapcheck // already prefixed
}

func runMigrate(ctx context.Context, s *schema.Schema, dir string, debug bool) error {
	ds, err := config.Load(s.Datasource(), dir)
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}
	db, err := config.Open(ctx, ds)
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}
	defer func() { _ = db.Close() }()

	if debug {
		db = db.Debug(orm.LoggerFunc(func(_ context.Context, query string, args ...any) {
			log.Printf("%s %v", query, args)
		}))
	}

	dialect := db.Dialect().Name()
	stmts, err := gen.DDL(s, dialect)
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}
	if err := orm.Migrate(ctx, db, map[string][]string{dialect: stmts}); err != nil {
		return err //nolint:wrapcheck // already prefixed
	}
	log.Printf("%s: created %d tables and indexes on %s", name, len(stmts), dialect)
	return nil
}
