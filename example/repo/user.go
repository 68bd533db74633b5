package repo

import (
	"context"

	"github.com/mickamy/schemagen/example/query"
	"github.com/mickamy/schemagen/orm"
	"github.com/mickamy/schemagen/scope"
)

// UserRepository wraps generated query functions with a repository pattern.
type UserRepository struct {
	db orm.Querier
}

func NewUserRepository(db orm.Querier) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *query.User) error {
	return query.Users(r.db).Create(ctx, u)
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (query.User, error) {
	return query.Users(r.db).FindByPK(ctx, id)
}

// FindWithPosts loads a user together with the posts it owns.
func (r *UserRepository) FindWithPosts(ctx context.Context, id int) (query.User, error) {
	return query.Users(r.db).Preload("Posts").FindByPK(ctx, id)
}

func (r *UserRepository) FindAll(ctx context.Context, scopes ...scope.Scope) ([]query.User, error) {
	return query.Users(r.db).Scopes(scopes...).OrderBy("id").All(ctx)
}

func (r *UserRepository) Update(ctx context.Context, u *query.User) error {
	return query.Users(r.db).Update(ctx, u)
}

// Delete removes the user. The database deletes the user's posts with it.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	return query.Users(r.db).Scopes(scope.Eq("id", id)).Delete(ctx)
}
