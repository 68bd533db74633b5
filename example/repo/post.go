package repo

import (
	"context"

	"github.com/mickamy/schemagen/example/query"
	"github.com/mickamy/schemagen/orm"
	"github.com/mickamy/schemagen/scope"
)

type PostRepository struct {
	db orm.Querier
}

func NewPostRepository(db orm.Querier) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts p. It fails with orm.ErrForeignKeyViolation when the
// owning user does not exist.
func (r *PostRepository) Create(ctx context.Context, p *query.Post) error {
	return query.Posts(r.db).Create(ctx, p)
}

// CreateAll inserts posts in one statement.
func (r *PostRepository) CreateAll(ctx context.Context, posts []*query.Post) error {
	return query.Posts(r.db).CreateAll(ctx, posts)
}

// FindByUser returns a page of the user's posts, newest first, with the
// owner preloaded.
func (r *PostRepository) FindByUser(ctx context.Context, userID, page, perPage int) ([]query.Post, error) {
	return query.Posts(r.db).
		Preload("User").
		Scopes(scope.Eq("user_id", userID), scope.OrderBy("id DESC")).
		Scopes(scope.Paginate(page, perPage)...).
		All(ctx)
}

func (r *PostRepository) CountByUser(ctx context.Context, userID int) (int64, error) {
	return query.Posts(r.db).Scopes(scope.Eq("user_id", userID)).Count(ctx)
}
