package naming_test

import (
	"testing"

	"github.com/mickamy/schemagen/internal/naming"
)

func TestCamelToSnake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"ID", "id"},
		{"Name", "name"},
		{"CreatedAt", "created_at"},
		{"UserID", "user_id"},
		{"userId", "user_id"},
		{"HTTPServer", "http_server"},
		{"userProfile", "user_profile"},
		{"A", "a"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := naming.CamelToSnake(tt.input)
			if got != tt.want {
				t.Errorf("CamelToSnake(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSnakeToCamel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"id", "ID"},
		{"user_id", "UserID"},
		{"posts", "Posts"},
		{"user_profiles", "UserProfiles"},
		{"avatar_url", "AvatarURL"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := naming.SnakeToCamel(tt.input); got != tt.want {
				t.Errorf("SnakeToCamel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGoName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"id":        "ID",
		"userId":    "UserID",
		"name":      "Name",
		"createdAt": "CreatedAt",
		"posts":     "Posts",
	}
	for in, want := range tests {
		if got := naming.GoName(in); got != want {
			t.Errorf("GoName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTableName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"User":        "users",
		"Post":        "posts",
		"UserProfile": "user_profiles",
		"Category":    "categories",
	}
	for in, want := range tests {
		if got := naming.TableName(in); got != want {
			t.Errorf("TableName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoinTableName(t *testing.T) {
	t.Parallel()

	if got := naming.JoinTableName("Tag", "Post"); got != "post_tags" {
		t.Errorf("JoinTableName(Tag, Post) = %q, want %q", got, "post_tags")
	}
	if got := naming.JoinTableName("Post", "Tag"); got != "post_tags" {
		t.Errorf("JoinTableName(Post, Tag) = %q, want %q", got, "post_tags")
	}
}
