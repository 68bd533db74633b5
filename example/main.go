package main

//go:generate go tool schemagen -schema schema.prisma

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/mickamy/schemagen/example/query"
	"github.com/mickamy/schemagen/example/repo"
	"github.com/mickamy/schemagen/internal/config"
	"github.com/mickamy/schemagen/internal/schema"
	"github.com/mickamy/schemagen/orm"
)

func main() {
	schemaPath := flag.String("schema", "schema.prisma", "schema whose datasource to connect to")
	provider := flag.String("provider", "", "override the datasource provider (mysql or postgresql)")
	debug := flag.Bool("debug", false, "log every SQL statement")
	flag.Parse()

	ctx := context.Background()

	db, err := openDB(ctx, *schemaPath, *provider)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if *debug {
		db = db.Debug(orm.LoggerFunc(func(_ context.Context, q string, args ...any) {
			log.Printf("%s %v", q, args)
		}))
	}

	// CREATE TABLE
	fmt.Println("--- MIGRATE ---")
	for _, table := range []string{"posts", "users"} {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			log.Fatalf("drop table %s: %v", table, err)
		}
	}
	if err := query.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	fmt.Println("Tables 'users' and 'posts' created.")

	users := repo.NewUserRepository(db)
	posts := repo.NewPostRepository(db)

	// INSERT
	fmt.Println("\n--- INSERT ---")
	alice := &query.User{Name: "Alice"}
	if err := users.Create(ctx, alice); err != nil {
		log.Fatalf("create Alice: %v", err)
	}
	bob := &query.User{Name: "Bob"}
	if err := users.Create(ctx, bob); err != nil {
		log.Fatalf("create Bob: %v", err)
	}
	fmt.Printf("Created: %+v, %+v\n", *alice, *bob)

	if err := posts.CreateAll(ctx, []*query.Post{
		{Content: "Hello, world", UserID: alice.ID},
		{Content: "Second post", UserID: alice.ID},
		{Content: "Bob was here", UserID: bob.ID},
	}); err != nil {
		log.Fatalf("create posts: %v", err)
	}

	// Every post needs an owner.
	orphan := &query.Post{Content: "nobody's", UserID: bob.ID + 100}
	if err := posts.Create(ctx, orphan); errors.Is(err, orm.ErrForeignKeyViolation) {
		fmt.Println("Post without an existing owner rejected:", err)
	} else if err != nil {
		log.Fatalf("create orphan: %v", err)
	} else {
		log.Fatal("orphan post was accepted")
	}

	// PRELOAD
	fmt.Println("\n--- PRELOAD ---")
	withPosts, err := users.FindWithPosts(ctx, alice.ID)
	if err != nil {
		log.Fatalf("find with posts: %v", err)
	}
	fmt.Printf("%s has %d posts\n", withPosts.Name, len(withPosts.Posts))
	for _, p := range withPosts.Posts {
		fmt.Printf("  %d: %s\n", p.ID, p.Content)
	}

	page, err := posts.FindByUser(ctx, alice.ID, 1, 1)
	if err != nil {
		log.Fatalf("find by user: %v", err)
	}
	for _, p := range page {
		fmt.Printf("Latest post by %s: %s\n", p.User.Name, p.Content)
	}

	// UPDATE
	fmt.Println("\n--- UPDATE ---")
	alice.Name = "Alice Updated"
	if err := users.Update(ctx, alice); err != nil {
		log.Fatalf("update Alice: %v", err)
	}
	updated, err := users.FindByID(ctx, alice.ID)
	if err != nil {
		log.Fatalf("find after update: %v", err)
	}
	fmt.Printf("Updated: %+v\n", updated)

	// DELETE cascades to posts
	fmt.Println("\n--- DELETE ---")
	if err := users.Delete(ctx, alice.ID); err != nil {
		log.Fatalf("delete Alice: %v", err)
	}
	n, err := posts.CountByUser(ctx, alice.ID)
	if err != nil {
		log.Fatalf("count posts: %v", err)
	}
	fmt.Printf("Deleted user ID=%d; posts left for that user: %d\n", alice.ID, n)

	if _, err := users.FindByID(ctx, alice.ID); errors.Is(err, orm.ErrNotFound) {
		fmt.Println("User is gone.")
	}

	remaining, err := users.FindAll(ctx)
	if err != nil {
		log.Fatalf("find all after delete: %v", err)
	}
	fmt.Printf("Remaining users: %d\n", len(remaining))
	for _, u := range remaining {
		fmt.Printf("  %+v\n", u)
	}
}

// openDB connects to the datasource declared in the schema. The url is read
// from the environment or a .env file next to the schema.
func openDB(ctx context.Context, schemaPath, provider string) (*orm.DB, error) {
	s, err := schema.Load(schemaPath)
	if err != nil {
		return nil, err
	}
	ds, err := config.Load(s.Datasource(), filepath.Dir(schemaPath))
	if err != nil {
		return nil, err
	}
	if provider != "" {
		ds.Provider = provider
	}
	return config.Open(ctx, ds)
}
