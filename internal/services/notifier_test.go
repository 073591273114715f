package services

import (
	"agora/internal/models"
	"context"
	"errors"
	"testing"
)

func TestMultiNotifier(t *testing.T) {
	ok := &recordingNotifier{}
	bad := &recordingNotifier{err: errors.New("sink down")}
	m := MultiNotifier{ok, nil, bad}

	ev := newEvent(models.NotificationTypeUpvote, 1, 2, 3, models.TargetPost, testNow)
	err := m.Notify(context.Background(), ev)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.Events()) != 1 || len(bad.Events()) != 1 {
		t.Fatal("every sink should see the event")
	}
	if ok.Events()[0].ID != ev.ID || len(ev.ID) != 36 {
		t.Fatalf("event id = %q", ev.ID)
	}
}

func TestStoreNotifier(t *testing.T) {
	f := newFixture(t)
	n := NewStoreNotifier(f.store)
	ev := newEvent(models.NotificationTypeReplyComment, authorID, voterID, 5, models.TargetComment, testNow)
	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	got := f.store.Notifications(authorID)
	if len(got) != 1 || got[0].EventID != ev.ID || got[0].IsRead {
		t.Fatalf("rows = %+v", got)
	}
}
