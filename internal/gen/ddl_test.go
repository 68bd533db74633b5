package gen_test

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/mickamy/schemagen/internal/gen"
	"github.com/mickamy/schemagen/internal/schema"
)

func testdataPath(name string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

func load(t *testing.T, name string) *schema.Schema {
	t.Helper()

	s, err := schema.Load(testdataPath(name))
	if err != nil {
		t.Fatalf("Load(%s): %v", name, err)
	}
	return s
}

func TestDDLBlog(t *testing.T) {
	t.Parallel()

	s := load(t, "blog.prisma")

	tests := []struct {
		dialect string
		want    []string
	}{
		{
			dialect: "postgresql",
			want: []string{
				`CREATE TABLE "users" ("id" SERIAL NOT NULL, "name" TEXT NOT NULL, PRIMARY KEY ("id"))`,
				`CREATE TABLE "posts" ("id" SERIAL NOT NULL, "content" TEXT NOT NULL, "user_id" INTEGER NOT NULL, PRIMARY KEY ("id"), ` +
					`FOREIGN KEY ("user_id") REFERENCES "users" ("id") ON DELETE CASCADE ON UPDATE CASCADE)`,
			},
		},
		{
			dialect: "mysql",
			want: []string{
				"CREATE TABLE `users` (`id` INT NOT NULL AUTO_INCREMENT, `name` VARCHAR(191) NOT NULL, PRIMARY KEY (`id`))",
				"CREATE TABLE `posts` (`id` INT NOT NULL AUTO_INCREMENT, `content` VARCHAR(191) NOT NULL, `user_id` INT NOT NULL, PRIMARY KEY (`id`), " +
					"FOREIGN KEY (`user_id`) REFERENCES `users` (`id`) ON DELETE CASCADE ON UPDATE CASCADE)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			t.Parallel()

			got, err := gen.DDL(s, tt.dialect)
			if err != nil {
				t.Fatalf("DDL: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d statements, want %d:\n%s", len(got), len(tt.want), strings.Join(got, "\n"))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("stmt %d:\n got: %s\nwant: %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDDLShop(t *testing.T) {
	t.Parallel()

	s := load(t, "shop.prisma")
	got, err := gen.DDL(s, "mysql")
	if err != nil {
		t.Fatalf("DDL: %v", err)
	}

	prefixes := []string{
		"CREATE TABLE `shop_customers`",
		"CREATE TABLE `profiles`",
		"CREATE TABLE `orders`",
		"CREATE INDEX `orders_status_total_idx` ON `orders` (`status`, `total`)",
		"CREATE TABLE `coupons`",
		"CREATE TABLE `coupon_customers`",
	}
	if len(got) != len(prefixes) {
		t.Fatalf("got %d statements, want %d:\n%s", len(got), len(prefixes), strings.Join(got, "\n"))
	}
	for i, p := range prefixes {
		if !strings.HasPrefix(got[i], p) {
			t.Errorf("stmt %d = %s, want prefix %s", i, got[i], p)
		}
	}

	contains := map[int][]string{
		0: {
			"`id` BIGINT NOT NULL AUTO_INCREMENT",
			"`email` VARCHAR(255) NOT NULL",
			"`nick` VARCHAR(191),",
			"`active` BOOLEAN NOT NULL DEFAULT TRUE",
			"`created_at` DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3)",
			"`updated_at` DATETIME(3) NOT NULL,",
			"UNIQUE (`email`)",
		},
		1: {
			"`bio` VARCHAR(191) NOT NULL DEFAULT 'it''s me'",
			"UNIQUE (`customer_id`)",
			"FOREIGN KEY (`customer_id`) REFERENCES `shop_customers` (`id`) ON DELETE CASCADE ON UPDATE CASCADE",
		},
		2: {
			"`total` DOUBLE NOT NULL DEFAULT 0",
			"`customer_id` BIGINT,",
			"ON DELETE SET NULL ON UPDATE CASCADE",
		},
		5: {
			"`coupon_id` VARCHAR(191) NOT NULL",
			"`customer_id` BIGINT NOT NULL",
			"PRIMARY KEY (`coupon_id`, `customer_id`)",
			"FOREIGN KEY (`coupon_id`) REFERENCES `coupons` (`code`) ON DELETE CASCADE",
			"FOREIGN KEY (`customer_id`) REFERENCES `shop_customers` (`id`) ON DELETE CASCADE",
		},
	}
	for i, subs := range contains {
		for _, sub := range subs {
			if !strings.Contains(got[i], sub) {
				t.Errorf("stmt %d = %s\nwant it to contain %s", i, got[i], sub)
			}
		}
	}
}

func TestDDLParentsFirst(t *testing.T) {
	t.Parallel()

	s, err := schema.Parse(`
datasource db {
  provider = "postgresql"
  url      = "postgres://localhost/app"
}
generator client {
  provider = "schemagen"
}
model Comment {
  id     Int  @id
  postId Int
  post   Post @relation(fields: [postId], references: [id])
}
model Post {
  id       Int       @id
  userId   Int
  user     User      @relation(fields: [userId], references: [id])
  comments Comment[]
}
model User {
  id    Int    @id
  posts Post[]
}
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := schema.Resolve(s); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got, err := gen.DDL(s, "postgresql")
	if err != nil {
		t.Fatalf("DDL: %v", err)
	}
	order := []string{`"users"`, `"posts"`, `"comments"`}
	for i, table := range order {
		if !strings.HasPrefix(got[i], "CREATE TABLE "+table) {
			t.Errorf("stmt %d = %s, want table %s", i, got[i], table)
		}
	}
	if !strings.Contains(got[2], "ON DELETE RESTRICT ON UPDATE CASCADE") {
		t.Errorf("required relation without onDelete: %s", got[2])
	}
}

func TestDDLCycle(t *testing.T) {
	t.Parallel()

	s, err := schema.Parse(`
datasource db {
  provider = "mysql"
  url      = "mysql://root@localhost/app"
}
generator client {
  provider = "schemagen"
}
model A {
  id  Int @id
  bId Int
  b   B   @relation("ab", fields: [bId], references: [id])
  bs  B[] @relation("ba")
}
model B {
  id  Int @id
  aId Int
  a   A   @relation("ba", fields: [aId], references: [id])
  as  A[] @relation("ab")
}
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := schema.Resolve(s); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	_, err = gen.DDL(s, "mysql")
	if err == nil || !strings.Contains(err.Error(), "cycle: A -> B -> A") {
		t.Errorf("err = %v, want a cycle error", err)
	}
}

func TestDDLUnknownDialect(t *testing.T) {
	t.Parallel()

	if _, err := gen.DDL(load(t, "blog.prisma"), "sqlite"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func TestDDLStringDefaultEscaping(t *testing.T) {
	t.Parallel()

	s, err := schema.Parse(`
datasource db {
  provider = "mysql"
  url      = "mysql://root@localhost/app"
}
generator client {
  provider = "schemagen"
}
model Setting {
  id   Int    @id
  path String @default("C:\\it's")
}
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := schema.Resolve(s); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	tests := []struct {
		dialect string
		want    string
	}{
		{"mysql", "`path` VARCHAR(191) NOT NULL DEFAULT 'C:\\\\it''s'"},
		{"postgresql", `"path" TEXT NOT NULL DEFAULT 'C:\it''s'`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			t.Parallel()

			got, err := gen.DDL(s, tt.dialect)
			if err != nil {
				t.Fatalf("DDL: %v", err)
			}
			if len(got) != 1 || !strings.Contains(got[0], tt.want) {
				t.Errorf("DDL = %v, want it to contain %s", got, tt.want)
			}
		})
	}
}
