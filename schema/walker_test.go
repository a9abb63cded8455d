package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wenzapen/scraper/selector"
)

const listing = `<html><body>
<h1>Posts</h1>
<ul>
  <li class="post"><h2>First</h2><a href="/1">more</a><span class="tag">go</span><span class="tag">web</span></li>
  <li class="post"><h2>Second</h2><a href="/2">more</a></li>
  <li class="post"><h2></h2></li>
</ul>
</body></html>`

func doc(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d.Selection
}

func TestWalker_EndToEnd(t *testing.T) {
	root := doc(t, `<h1>T</h1><a href="/x">1</a><a href="/y">2</a>`)
	w := NewWalker(nil, zap.NewNop())

	got, err := w.Evaluate(context.Background(), root, "", Object{
		{Key: "title", Node: Scalar("h1")},
		{Key: "links", Node: ScalarArray("a@href")},
	})
	require.NoError(t, err)

	want := Record{
		{Key: "title", Value: "T"},
		{Key: "links", Value: []any{"/x", "/y"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
	}
}

func TestWalker_ObjectArray(t *testing.T) {
	w := NewWalker(nil, nil)
	n := MustCompile(map[string]any{
		"title": "h1",
		"posts": []any{[]Field{
			{Key: "title", Node: Scalar("h2")},
			{Key: "link", Node: Scalar("a@href")},
			{Key: "tags", Node: ScalarArray(".tag")},
		}},
	})

	got, err := w.Evaluate(context.Background(), doc(t, listing), ".post", n)
	require.NoError(t, err)

	want := Record{
		{Key: "posts", Value: []any{
			Record{
				{Key: "title", Value: "First"},
				{Key: "link", Value: "/1"},
				{Key: "tags", Value: []any{"go", "web"}},
			},
			Record{
				{Key: "title", Value: "Second"},
				{Key: "link", Value: "/2"},
				{Key: "tags", Value: []any{}},
			},
			Record{
				{Key: "tags", Value: []any{}},
			},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Evaluate() mismatch (-want +got):\n%s", diff)
	}
}

func TestWalker_ObjectArrayNoMatches(t *testing.T) {
	w := NewWalker(nil, nil)
	n := ObjectArray{Elem: Object{{Key: "t", Node: Scalar("h2")}}}

	got, err := w.Evaluate(context.Background(), doc(t, listing), ".missing", n)
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)

	got, err = w.Evaluate(context.Background(), doc(t, listing), "", n)
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)
}

func TestWalker_UnusableScope(t *testing.T) {
	w := NewWalker(nil, nil)
	root := doc(t, listing)

	for _, scope := range []string{"a@href", "http://example.com/page"} {
		got, err := w.Evaluate(context.Background(), root, scope, Scalar("h1"))
		require.NoError(t, err)
		assert.Equal(t, "Posts", got)
	}
}

func TestWalker_DropsEmptyFields(t *testing.T) {
	w := NewWalker(nil, nil)
	got, err := w.Evaluate(context.Background(), doc(t, listing), "", Object{
		{Key: "missingText", Node: Scalar("h3")},
		{Key: "missingAttr", Node: Scalar("h1@id")},
		{Key: "empty", Node: ScalarArray("h3")},
	})
	require.NoError(t, err)
	assert.Equal(t, Record{{Key: "empty", Value: []any{}}}, got)
}

func TestWalker_Escape(t *testing.T) {
	w := NewWalker(nil, nil)
	n := Object{
		{Key: "count", Node: Escape{Func(func(_ context.Context, root *goquery.Selection) (any, error) {
			return root.Find("li").Length(), nil
		})}},
	}
	got, err := w.Evaluate(context.Background(), doc(t, listing), "", n)
	require.NoError(t, err)
	assert.Equal(t, Record{{Key: "count", Value: 3}}, got)

	boom := errors.New("boom")
	_, err = w.Evaluate(context.Background(), doc(t, listing), "", Escape{Func(func(context.Context, *goquery.Selection) (any, error) {
		return nil, boom
	})})
	assert.ErrorIs(t, err, boom)
}

func TestWalker_UnresolvedFilterFailsParent(t *testing.T) {
	w := NewWalker(selector.Builtin(), nil)
	_, err := w.Evaluate(context.Background(), doc(t, listing), ".post", Object{
		{Key: "title", Node: Scalar("h1")},
		{Key: "posts", Node: ObjectArray{Elem: Object{
			{Key: "t", Node: Scalar("h2 | nope")},
		}}},
	})

	var unresolved *selector.UnresolvedFilterError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "nope", unresolved.Name)
	assert.Contains(t, err.Error(), `field "posts"`)
}

func TestWalker_FilterChain(t *testing.T) {
	w := NewWalker(selector.Builtin(), nil)
	got, err := w.Evaluate(context.Background(), doc(t, `<span class="price"> 42 </span>`), "", Scalar(".price | trim | number"))
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
}
