package model_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/model"
)

func blogDefs() (users, posts, profiles, tags *model.Definition) {
	users = &model.Definition{Name: "User"}
	posts = &model.Definition{Name: "Post"}
	profiles = &model.Definition{Name: "Profile"}
	tags = &model.Definition{Name: "Tag"}

	users.Relations = map[string]model.Relation{
		"posts":   {Kind: model.HasMany, Target: posts},
		"profile": {Kind: model.HasOne, Target: profiles},
	}
	posts.Relations = map[string]model.Relation{
		"author": {Kind: model.BelongsTo, Target: users, ForeignKey: "user_id"},
		"tags":   {Kind: model.BelongsToMany, Target: tags},
	}
	return users, posts, profiles, tags
}

func seedBlog(a *fakeAdapter) {
	a.seed("users",
		adapter.Row{"id": int64(1), "name": "ada"},
		adapter.Row{"id": int64(2), "name": "grace"},
		adapter.Row{"id": int64(3), "name": "edsger"},
	)
	a.seed("posts",
		adapter.Row{"id": int64(10), "user_id": int64(1), "title": "engines"},
		adapter.Row{"id": int64(11), "user_id": int64(1), "title": "notes"},
		adapter.Row{"id": int64(12), "user_id": int64(2), "title": "compilers"},
	)
	a.seed("profiles",
		adapter.Row{"id": int64(20), "user_id": int64(1), "bio": "first programmer"},
	)
	a.seed("tags",
		adapter.Row{"id": int64(30), "name": "history"},
		adapter.Row{"id": int64(31), "name": "computing"},
	)
	a.seed("post_tag",
		adapter.Row{"post_id": int64(10), "tag_id": int64(30), "weight": int64(5)},
		adapter.Row{"post_id": int64(10), "tag_id": int64(31), "weight": int64(1)},
		adapter.Row{"post_id": int64(12), "tag_id": int64(31), "weight": int64(2)},
	)
}

func TestEagerHasMany(t *testing.T) {
	usersDef, _, _, _ := blogDefs()
	a := newFakeAdapter()
	seedBlog(a)
	c := model.NewClass(usersDef, a)

	users, err := c.With("posts").Get(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	// One query for the parents, one for all their posts.
	assert.Equal(t, 2, a.selects)

	v, ok := users[0].Relation("posts")
	require.True(t, ok)
	posts := v.([]*model.Instance)
	require.Len(t, posts, 2)
	assert.Equal(t, "engines", posts[0].Get("title"))

	// A parent without children gets an empty, non-nil slice.
	v, ok = users[2].Relation("posts")
	require.True(t, ok)
	assert.Empty(t, v.([]*model.Instance))
}

func TestEagerHasOne(t *testing.T) {
	usersDef, _, _, _ := blogDefs()
	a := newFakeAdapter()
	seedBlog(a)
	c := model.NewClass(usersDef, a)

	users, err := c.With("profile").Get(context.Background())
	require.NoError(t, err)

	v, _ := users[0].Relation("profile")
	profile := v.(*model.Instance)
	require.NotNil(t, profile)
	assert.Equal(t, "first programmer", profile.Get("bio"))

	v, _ = users[1].Relation("profile")
	assert.Nil(t, v.(*model.Instance))
}

func TestEagerBelongsTo(t *testing.T) {
	_, postsDef, _, _ := blogDefs()
	a := newFakeAdapter()
	seedBlog(a)
	c := model.NewClass(postsDef, a)

	posts, err := c.With("author").Get(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, 2, a.selects)

	v, _ := posts[0].Relation("author")
	author := v.(*model.Instance)
	require.NotNil(t, author)
	assert.Equal(t, "ada", author.Get("name"))
}

func TestEagerBelongsToMany(t *testing.T) {
	_, postsDef, _, _ := blogDefs()
	a := newFakeAdapter()
	seedBlog(a)
	c := model.NewClass(postsDef, a)

	posts, err := c.With("tags").Get(context.Background())
	require.NoError(t, err)
	// Parents, pivot rows, related rows.
	assert.Equal(t, 3, a.selects)

	v, _ := posts[0].Relation("tags")
	tags := v.([]*model.Instance)
	require.Len(t, tags, 2)
	assert.Equal(t, "history", tags[0].Get("name"))
	// Pivot attributes ride along per association.
	require.NotNil(t, tags[0].Pivot)
	assert.Equal(t, int64(5), tags[0].Pivot["weight"])
	assert.Equal(t, int64(1), tags[1].Pivot["weight"])

	// The same tag linked to another post carries that post's pivot row.
	v, _ = posts[2].Relation("tags")
	other := v.([]*model.Instance)
	require.Len(t, other, 1)
	assert.Equal(t, int64(31), other[0].ID())
	assert.Equal(t, int64(2), other[0].Pivot["weight"])

	// Posts without tags get an empty slice.
	v, _ = posts[1].Relation("tags")
	assert.Empty(t, v.([]*model.Instance))
}

func TestEagerMultipleRelations(t *testing.T) {
	usersDef, _, _, _ := blogDefs()
	a := newFakeAdapter()
	seedBlog(a)
	c := model.NewClass(usersDef, a)

	users, err := c.With("posts", "profile").Get(context.Background())
	require.NoError(t, err)
	for _, u := range users {
		_, ok := u.Relation("posts")
		assert.True(t, ok)
		_, ok = u.Relation("profile")
		assert.True(t, ok)
	}
}

func TestLazyLoadCaches(t *testing.T) {
	usersDef, _, _, _ := blogDefs()
	a := newFakeAdapter()
	seedBlog(a)
	c := model.NewClass(usersDef, a)
	ctx := context.Background()

	user, err := c.Find(ctx, int64(1))
	require.NoError(t, err)
	before := a.selects

	v, err := user.Related(ctx, "posts")
	require.NoError(t, err)
	assert.Len(t, v.([]*model.Instance), 2)
	assert.Equal(t, before+1, a.selects)

	// Second access serves the cache.
	_, err = user.Related(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, before+1, a.selects)
}

func TestUndeclaredRelation(t *testing.T) {
	usersDef, _, _, _ := blogDefs()
	a := newFakeAdapter()
	seedBlog(a)
	c := model.NewClass(usersDef, a)
	ctx := context.Background()

	user, err := c.Find(ctx, int64(1))
	require.NoError(t, err)

	_, err = user.Related(ctx, "followers")
	require.Error(t, err)
	assert.True(t, quarry.IsConfig(err))

	_, err = c.With("followers").Get(ctx)
	require.Error(t, err)
	assert.True(t, quarry.IsConfig(err))
}

func TestKeyNormalizationAcrossTypes(t *testing.T) {
	// Parent keys and child foreign keys may come back from different
	// drivers with different dynamic types; matching is by normalized
	// value, so int64(1) matches "1".
	usersDef := &model.Definition{Name: "User"}
	postsDef := &model.Definition{Name: "Post"}
	usersDef.Relations = map[string]model.Relation{
		"posts": {Kind: model.HasMany, Target: postsDef},
	}

	a := newFakeAdapter()
	a.seed("users", adapter.Row{"id": int64(1), "name": "ada"})
	a.seed("posts", adapter.Row{"id": "10", "user_id": "1", "title": "engines"})
	c := model.NewClass(usersDef, a)

	users, err := c.With("posts").Get(context.Background())
	require.NoError(t, err)
	v, _ := users[0].Relation("posts")
	assert.Len(t, v.([]*model.Instance), 1)
}

func TestEagerNestedSerialization(t *testing.T) {
	usersDef, _, _, _ := blogDefs()
	a := newFakeAdapter()
	seedBlog(a)
	c := model.NewClass(usersDef, a)

	users, err := c.With("posts").Get(context.Background())
	require.NoError(t, err)

	raw, err := users[0].ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"posts":[`)
	assert.Contains(t, string(raw), `"engines"`)
}
