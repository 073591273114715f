package services

import (
	"agora/internal/models"
	"agora/internal/utils"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateComment_RecountsAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewCommentService(f.deps, nil)
	f.cache.Put("content:any", []models.ContentItem{{ID: 1}})

	top, err := svc.CreateComment(ctx, voterID, CommentInput{Content: " first ", PostID: uptr(f.post.ID)})
	if err != nil {
		t.Fatal(err)
	}
	if top.Content != "first" || top.ParentID != nil {
		t.Fatalf("comment = %+v", top)
	}
	if f.cache.Len() != 0 {
		t.Fatal("cache not invalidated")
	}

	// author replies to the voter
	if _, err := svc.CreateComment(ctx, authorID, CommentInput{Content: "reply", PostID: uptr(f.post.ID), ParentID: &top.ID}); err != nil {
		t.Fatal(err)
	}

	item, _ := f.store.GetContent(ctx, models.ContentRef{Type: models.ContentPost, ID: f.post.ID})
	if item.CommentCount != 2 {
		t.Fatalf("comment count = %d, want 2", item.CommentCount)
	}

	toAuthor := f.store.Notifications(authorID)
	if len(toAuthor) != 1 || toAuthor[0].Type != models.NotificationTypeCommentPost {
		t.Fatalf("author notifications = %+v", toAuthor)
	}
	toVoter := f.store.Notifications(voterID)
	if len(toVoter) != 1 || toVoter[0].Type != models.NotificationTypeReplyComment || toVoter[0].TargetID != top.ID {
		t.Fatalf("voter notifications = %+v", toVoter)
	}
}

func TestCreateComment_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewCommentService(f.deps, nil)

	onPoll, err := svc.CreateComment(ctx, voterID, CommentInput{Content: "on poll", PollID: uptr(f.poll.ID)})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		in   CommentInput
		want error
	}{
		{"empty", CommentInput{Content: "   ", PostID: uptr(f.post.ID)}, ErrInvalidContent},
		{"too long", CommentInput{Content: strings.Repeat("x", MaxCommentLength+1), PostID: uptr(f.post.ID)}, ErrInvalidContent},
		{"no root", CommentInput{Content: "x"}, ErrInvalidTarget},
		{"two roots", CommentInput{Content: "x", PostID: uptr(f.post.ID), PollID: uptr(f.poll.ID)}, ErrInvalidTarget},
		{"missing post", CommentInput{Content: "x", PostID: uptr(999)}, ErrInvalidTarget},
		{"missing parent", CommentInput{Content: "x", PostID: uptr(f.post.ID), ParentID: uptr(999)}, ErrInvalidParent},
		{"parent in other thread", CommentInput{Content: "x", PostID: uptr(f.post.ID), ParentID: &onPoll.ID}, ErrInvalidParent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateComment(ctx, voterID, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateComment_NoSelfNotification(t *testing.T) {
	f := newFixture(t)
	rec := &recordingNotifier{}
	f.deps.Notifier = rec
	svc := NewCommentService(f.deps, nil)

	if _, err := svc.CreateComment(context.Background(), authorID, CommentInput{Content: "mine", PostID: uptr(f.post.ID)}); err != nil {
		t.Fatal(err)
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("events = %+v", rec.Events())
	}
}

func TestListComments_BuildsTree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewCommentService(f.deps, nil)

	root, _ := svc.CreateComment(ctx, voterID, CommentInput{Content: "**root**", PostID: uptr(f.post.ID)})
	_, _ = svc.CreateComment(ctx, authorID, CommentInput{Content: "child", PostID: uptr(f.post.ID), ParentID: &root.ID})
	_, _ = svc.CreateComment(ctx, authorID, CommentInput{Content: "second root", PostID: uptr(f.post.ID)})

	tree, err := svc.ListComments(ctx, models.ContentRef{Type: models.ContentPost, ID: f.post.ID}, utils.TreeOptions{RenderMarkdown: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(tree) != 2 {
		t.Fatalf("roots = %d, want 2", len(tree))
	}
	if tree[0].ID != root.ID || len(tree[0].Children) != 1 {
		t.Fatalf("first root = %+v", tree[0])
	}
	if !strings.Contains(string(tree[0].ContentHTML), "<strong>root</strong>") {
		t.Fatalf("ContentHTML = %q", tree[0].ContentHTML)
	}
	if tree[0].User.Username != "voter" {
		t.Fatalf("author not loaded: %+v", tree[0].User)
	}

	if _, err := svc.ListComments(ctx, models.ContentRef{Type: models.ContentPost, ID: 999}, utils.TreeOptions{}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("missing root err = %v", err)
	}
}
