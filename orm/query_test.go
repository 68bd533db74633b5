package orm_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mickamy/schemagen/orm"
	"github.com/mickamy/schemagen/scope"
)

type testPost struct {
	ID        int
	UserID    int
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var testPostColumns = []string{"id", "user_id", "content", "created_at", "updated_at"}

func scanTestPost(_ *sql.Rows) (testPost, error) {
	return testPost{}, nil
}

func testPostColValPairs(p *testPost, includesPK bool) ([]string, []any) {
	if includesPK {
		return []string{"id", "user_id", "content", "created_at", "updated_at"},
			[]any{p.ID, p.UserID, p.Content, p.CreatedAt, p.UpdatedAt}
	}
	return []string{"user_id", "content", "created_at", "updated_at"},
		[]any{p.UserID, p.Content, p.CreatedAt, p.UpdatedAt}
}

func setTestPostPK(p *testPost, id int64) {
	p.ID = int(id)
}

func setTestPostCreatedAt(p *testPost, now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
}

func setTestPostUpdatedAt(p *testPost, now time.Time) {
	p.UpdatedAt = now
}

func newTestQuery(tq *orm.TestQuerier) *orm.Query[testPost] {
	q := orm.NewQuery[testPost](tq, "posts", testPostColumns, "id", scanTestPost, testPostColValPairs, setTestPostPK)
	q.RegisterJoin("User", orm.JoinConfig{
		TargetTable: "users", TargetColumn: "id",
		SourceTable: "posts", SourceColumn: "user_id",
	})
	q.RegisterTimestamps([]string{"created_at"}, setTestPostCreatedAt, setTestPostUpdatedAt)
	return q
}

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

// --- SELECT (MySQL) ---

func TestBuildSelectAll(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	_, _ = newTestQuery(tq).All(t.Context())

	got := tq.LastQuery()
	want := "SELECT `id`, `user_id`, `content`, `created_at`, `updated_at` FROM `posts`"
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}

func TestBuildSelectFull(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	_, _ = newTestQuery(tq).
		Select("id").
		Where("user_id = ?", 1).
		Where("id > ?", 10).
		OrderBy("id DESC").
		Limit(5).
		Offset(10).
		All(t.Context())

	got := tq.LastQuery()
	want := "SELECT id FROM `posts` WHERE user_id = ? AND id > ? ORDER BY id DESC LIMIT 5 OFFSET 10"
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
	if len(got.Args) != 2 || got.Args[0] != 1 || got.Args[1] != 10 {
		t.Errorf("Args = %v", got.Args)
	}
}

func TestBuildSelectWithScopes(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	_, _ = newTestQuery(tq).Scopes(
		scope.Eq("user_id", 1),
		scope.OrderBy("id DESC"),
	).Scopes(scope.Paginate(3, 5)...).All(t.Context())

	got := tq.LastQuery()
	want := "SELECT `id`, `user_id`, `content`, `created_at`, `updated_at` FROM `posts` WHERE user_id = ? ORDER BY id DESC LIMIT 5 OFFSET 10"
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}

func TestBuildSelectJoin(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.PostgreSQL)
	_, _ = newTestQuery(tq).Join("User").Where(`"users"."name" = ?`, "alice").All(t.Context())

	got := tq.LastQuery()
	want := `SELECT "id", "user_id", "content", "created_at", "updated_at" FROM "posts" INNER JOIN "users" ON "users"."id" = "posts"."user_id" WHERE "users"."name" = $1`
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}

func TestUnknownJoinIsIgnored(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	_, _ = newTestQuery(tq).LeftJoin("Nope").All(t.Context())

	want := "SELECT `id`, `user_id`, `content`, `created_at`, `updated_at` FROM `posts`"
	if got := tq.LastQuery(); got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}

// --- Immutability ---

func TestQueryImmutability(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	base := newTestQuery(tq)

	_ = base.Where("user_id = ?", 1)
	_ = base.OrderBy("id")
	_ = base.Limit(10)
	_ = base.Offset(5)
	_ = base.Join("User")

	_, _ = base.All(t.Context())

	want := "SELECT `id`, `user_id`, `content`, `created_at`, `updated_at` FROM `posts`"
	if got := tq.LastQuery(); got.SQL != want {
		t.Errorf("base query was mutated: SQL = %q", got.SQL)
	}
}

// --- INSERT ---

func TestBuildInsertMySQL(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	ctx := orm.WithClock(t.Context(), orm.ClockFunc(func() time.Time { return fixedNow }))

	p := testPost{UserID: 1, Content: "hello"}
	if err := newTestQuery(tq).Create(ctx, &p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got := tq.LastQuery()
	want := "INSERT INTO `posts` (`user_id`, `content`, `created_at`, `updated_at`) VALUES (?, ?, ?, ?)"
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
	if !p.CreatedAt.Equal(fixedNow) || !p.UpdatedAt.Equal(fixedNow) {
		t.Errorf("timestamps = %v, %v, want %v", p.CreatedAt, p.UpdatedAt, fixedNow)
	}
	if len(got.Args) != 4 || got.Args[1] != "hello" {
		t.Errorf("Args = %v", got.Args)
	}
}

func TestCreateKeepsExplicitCreatedAt(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	ctx := orm.WithClock(t.Context(), orm.ClockFunc(func() time.Time { return fixedNow }))

	earlier := fixedNow.Add(-time.Hour)
	p := testPost{UserID: 1, Content: "backdated", CreatedAt: earlier}
	_ = newTestQuery(tq).Create(ctx, &p)

	if !p.CreatedAt.Equal(earlier) {
		t.Errorf("CreatedAt = %v, want %v", p.CreatedAt, earlier)
	}
	if !p.UpdatedAt.Equal(fixedNow) {
		t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, fixedNow)
	}
}

func TestBuildInsertPostgreSQL(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.PostgreSQL)

	p := testPost{UserID: 1, Content: "hello"}
	_ = newTestQuery(tq).Create(t.Context(), &p)

	got := tq.LastQuery()
	want := `INSERT INTO "posts" ("user_id", "content", "created_at", "updated_at") VALUES ($1, $2, $3, $4) RETURNING "id"`
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}

func TestBuildBatchInsertMySQL(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)

	posts := []*testPost{{UserID: 1, Content: "a"}, {UserID: 1, Content: "b"}}
	if err := newTestQuery(tq).CreateAll(t.Context(), posts); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}

	got := tq.LastQuery()
	want := "INSERT INTO `posts` (`user_id`, `content`, `created_at`, `updated_at`) VALUES (?, ?, ?, ?), (?, ?, ?, ?)"
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
	if len(got.Args) != 8 {
		t.Errorf("len(Args) = %d, want 8", len(got.Args))
	}
}

func TestCreateAllEmptyIsNoop(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	if err := newTestQuery(tq).CreateAll(t.Context(), nil); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	if len(tq.Queries) != 0 {
		t.Errorf("queries = %v, want none", tq.Queries)
	}
}

// --- UPSERT ---

func TestBuildUpsertMySQL(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	p := testPost{ID: 3, UserID: 1, Content: "v2"}
	_ = newTestQuery(tq).Upsert(t.Context(), &p)

	got := tq.LastQuery()
	want := "INSERT INTO `posts` (`id`, `user_id`, `content`, `created_at`, `updated_at`) VALUES (?, ?, ?, ?, ?)" +
		" ON DUPLICATE KEY UPDATE `user_id` = VALUES(`user_id`), `content` = VALUES(`content`), `updated_at` = VALUES(`updated_at`)"
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}

func TestBuildUpsertPostgreSQL(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.PostgreSQL)
	p := testPost{ID: 3, UserID: 1, Content: "v2"}
	_ = newTestQuery(tq).Upsert(t.Context(), &p)

	got := tq.LastQuery()
	want := `INSERT INTO "posts" ("id", "user_id", "content", "created_at", "updated_at") VALUES ($1, $2, $3, $4, $5)` +
		` ON CONFLICT ("id") DO UPDATE SET "user_id" = EXCLUDED."user_id", "content" = EXCLUDED."content", "updated_at" = EXCLUDED."updated_at" RETURNING "id"`
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}

// --- UPDATE ---

func TestBuildUpdate(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	ctx := orm.WithClock(t.Context(), orm.ClockFunc(func() time.Time { return fixedNow }))

	p := testPost{ID: 1, UserID: 2, Content: "edited"}
	_ = newTestQuery(tq).Update(ctx, &p)

	got := tq.LastQuery()
	want := "UPDATE `posts` SET `user_id` = ?, `content` = ?, `updated_at` = ? WHERE `id` = ?"
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
	if len(got.Args) != 4 || got.Args[1] != "edited" || got.Args[3] != 1 {
		t.Errorf("Args = %v", got.Args)
	}
	if !p.UpdatedAt.Equal(fixedNow) {
		t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, fixedNow)
	}
}

func TestBuildUpdatePostgreSQL(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.PostgreSQL)
	p := testPost{ID: 1, UserID: 2, Content: "edited"}
	_ = newTestQuery(tq).Update(t.Context(), &p)

	got := tq.LastQuery()
	want := `UPDATE "posts" SET "user_id" = $1, "content" = $2, "updated_at" = $3 WHERE "id" = $4`
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}

// --- DELETE ---

func TestBuildDelete(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	_ = newTestQuery(tq).Where("user_id = ?", 1).Delete(t.Context())

	got := tq.LastQuery()
	want := "DELETE FROM `posts` WHERE user_id = ?"
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}

func TestDeleteWithoutWhereReturnsError(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	if err := newTestQuery(tq).Delete(t.Context()); err == nil {
		t.Fatal("expected error for Delete without WHERE, got nil")
	}
	if len(tq.Queries) != 0 {
		t.Errorf("queries = %v, want none", tq.Queries)
	}
}

// --- First / FindByPK ---

func TestFirstAddsLimit(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.MySQL)
	_, _ = newTestQuery(tq).First(t.Context())

	want := "SELECT `id`, `user_id`, `content`, `created_at`, `updated_at` FROM `posts` LIMIT 1"
	if got := tq.LastQuery(); got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}

func TestFindByPK(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.PostgreSQL)
	_, _ = newTestQuery(tq).FindByPK(t.Context(), 42)

	got := tq.LastQuery()
	want := `SELECT "id", "user_id", "content", "created_at", "updated_at" FROM "posts" WHERE "id" = $1 LIMIT 1`
	if got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
	if len(got.Args) != 1 || got.Args[0] != 42 {
		t.Errorf("Args = %v", got.Args)
	}
}

// --- Count ---

func TestBuildCount(t *testing.T) {
	t.Parallel()

	tq := orm.NewTestQuerier(orm.PostgreSQL)
	_, _ = newTestQuery(tq).Where("user_id = ?", 1).Count(t.Context())

	want := `SELECT COUNT(*) FROM "posts" WHERE user_id = $1`
	if got := tq.LastQuery(); got.SQL != want {
		t.Errorf("SQL = %q, want %q", got.SQL, want)
	}
}
