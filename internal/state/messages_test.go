package state

import (
	"testing"
	"time"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
)

func newOpenStore(t *testing.T, history ...models.Message) *Store {
	t.Helper()
	s := NewStore()
	s.SetSelf(models.User{ID: "u1", Username: "alice"})
	s.ReplaceRooms([]models.Room{mkRoom("r1", false, baseTime), mkRoom("r2", false, baseTime)})
	s.SetOpenRoom("r1", history)
	return s
}

func TestStore_ReconcileByClientID(t *testing.T) {
	s := newOpenStore(t,
		models.Message{ID: "m1", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "before", Timestamp: baseTime},
	)
	s.AppendLocal(&models.Message{ID: "temp-1", ClientID: "temp-1", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "hello", Status: models.StatusSending, Timestamp: baseTime.Add(time.Minute)})
	s.AppendLocal(&models.Message{ID: "temp-2", ClientID: "temp-2", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "again", Status: models.StatusSending, Timestamp: baseTime.Add(2 * time.Minute)})

	// 回显乱序到达也只顶替各自的占位，位置不变
	ok := s.ApplyMessage(&models.Message{ID: "s2", ClientID: "temp-2", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "again", Status: models.StatusSent, Timestamp: baseTime.Add(2 * time.Minute)})
	if !ok {
		t.Fatal("ApplyMessage() reported unknown room")
	}
	s.ApplyMessage(&models.Message{ID: "s1", ClientID: "temp-1", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "hello", Status: models.StatusSent, Timestamp: baseTime.Add(time.Minute)})

	msgs := s.Messages("r1")
	if len(msgs) != 3 {
		t.Fatalf("log len = %d, want 3 (no duplicate from echo)", len(msgs))
	}
	if msgs[1].ID != "s1" || msgs[1].Status != models.StatusSent {
		t.Errorf("msgs[1] = %+v, want reconciled s1", msgs[1])
	}
	if msgs[2].ID != "s2" {
		t.Errorf("msgs[2].ID = %q, want s2 (position preserved)", msgs[2].ID)
	}
}

func TestStore_ReconcileFallbackMatchesOldestSending(t *testing.T) {
	s := newOpenStore(t)
	s.AppendLocal(&models.Message{ID: "temp-1", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "hi", Status: models.StatusSending, Timestamp: baseTime})
	s.AppendLocal(&models.Message{ID: "temp-2", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "hi", Status: models.StatusSending, Timestamp: baseTime.Add(time.Second)})

	// 回显不带 client_id 时退回内容匹配，只顶替最早的那条
	s.ApplyMessage(&models.Message{ID: "s1", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "hi", Timestamp: baseTime})

	msgs := s.Messages("r1")
	if len(msgs) != 2 {
		t.Fatalf("log len = %d, want 2", len(msgs))
	}
	if msgs[0].ID != "s1" || msgs[0].Status != models.StatusSent {
		t.Errorf("msgs[0] = %+v, want oldest placeholder replaced and marked sent", msgs[0])
	}
	if msgs[1].ID != "temp-2" || msgs[1].Status != models.StatusSending {
		t.Errorf("msgs[1] = %+v, want second placeholder untouched", msgs[1])
	}
}

func TestStore_ApplyMessageClosedRoomBumpsOnly(t *testing.T) {
	s := newOpenStore(t)

	ok := s.ApplyMessage(&models.Message{ID: "m9", RoomID: "r2", SenderID: "u2", SenderName: "bob", Content: "psst", Timestamp: baseTime.Add(time.Hour)})
	if !ok {
		t.Fatal("ApplyMessage() reported unknown room")
	}

	if msgs := s.Messages("r2"); len(msgs) != 0 {
		t.Errorf("closed room log len = %d, want 0", len(msgs))
	}
	r, _ := s.Room("r2")
	if r.UnreadCount != 1 || r.LastMessage != "psst" || r.LastMessageID != "m9" {
		t.Errorf("room bump = %+v", r)
	}
	rooms := s.Rooms()
	if rooms[0].ID != "r2" {
		t.Errorf("rooms[0] = %s, want r2 after activity", rooms[0].ID)
	}
}

func TestStore_ApplyMessageUnknownRoom(t *testing.T) {
	s := newOpenStore(t)
	if ok := s.ApplyMessage(&models.Message{ID: "m1", RoomID: "ghost", SenderID: "u2", Content: "?", Timestamp: baseTime}); ok {
		t.Error("ApplyMessage() = true for unknown room, want false")
	}
}

func TestStore_RecallIdempotent(t *testing.T) {
	s := newOpenStore(t,
		models.Message{ID: "m1", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "secret", FileURL: "/f.png", FileKind: "image", Timestamp: baseTime},
	)

	s.ApplyRecall("r1", "m1")
	s.ApplyRecall("r1", "m1")

	msgs := s.Messages("r1")
	if len(msgs) != 1 {
		t.Fatalf("log len = %d, want 1", len(msgs))
	}
	got := msgs[0]
	if !got.IsRecalled || got.Content != models.RecalledText {
		t.Errorf("recalled message = %+v", got)
	}
	if got.FileURL != "" || got.FileKind != "" {
		t.Errorf("file payload survived recall: %+v", got)
	}
	r, _ := s.Room("r1")
	if r.LastMessage != models.RecalledText {
		t.Errorf("room preview = %q, want tombstone", r.LastMessage)
	}
}

func TestStore_EditPropagatesReplyPreviews(t *testing.T) {
	s := newOpenStore(t,
		models.Message{ID: "m1", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "original", Timestamp: baseTime},
		models.Message{ID: "m2", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "re 1", ReplyToID: "m1", ReplyToContent: "original", Timestamp: baseTime.Add(time.Minute)},
		models.Message{ID: "m3", RoomID: "r1", SenderID: "u3", SenderName: "carol", Content: "re 2", ReplyToID: "m1", ReplyToContent: "original", Timestamp: baseTime.Add(2 * time.Minute)},
	)

	s.ApplyEdit("r1", "m1", "edited")

	msgs := s.Messages("r1")
	if !msgs[0].IsEdited || msgs[0].Content != "edited" {
		t.Errorf("edited message = %+v", msgs[0])
	}
	for _, m := range msgs[1:] {
		if m.ReplyToContent != "edited" {
			t.Errorf("reply %s preview = %q, want edited", m.ID, m.ReplyToContent)
		}
	}
}

func TestStore_EditLastMessageUpdatesPreview(t *testing.T) {
	s := newOpenStore(t,
		models.Message{ID: "m1", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "old", Timestamp: baseTime},
	)
	s.ApplyMessage(&models.Message{ID: "m1", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "old", Timestamp: baseTime})

	s.ApplyEdit("r1", "m1", "new")

	r, _ := s.Room("r1")
	if r.LastMessage != "new" {
		t.Errorf("room preview = %q, want new", r.LastMessage)
	}
}

func TestStore_ToggleReactionThenAuthoritative(t *testing.T) {
	s := newOpenStore(t,
		models.Message{ID: "m1", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "hi", Timestamp: baseTime},
	)

	s.ToggleReaction("r1", "m1", "👍", "u1")
	got, _ := s.Message("r1", "m1")
	if users := got.Reactions["👍"]; len(users) != 1 || users[0] != "u1" {
		t.Fatalf("optimistic toggle = %v", got.Reactions)
	}

	s.ToggleReaction("r1", "m1", "👍", "u1")
	got, _ = s.Message("r1", "m1")
	if _, ok := got.Reactions["👍"]; ok {
		t.Fatalf("second toggle should remove entry: %v", got.Reactions)
	}

	// 服务端的权威映射整体覆盖本地结果
	s.ApplyReactions("r1", "m1", map[string][]string{"🎉": {"u2", "u3"}})
	got, _ = s.Message("r1", "m1")
	if users := got.Reactions["🎉"]; len(users) != 2 {
		t.Errorf("authoritative reactions = %v", got.Reactions)
	}
}

func TestStore_RemoveMessageRecomputesPreview(t *testing.T) {
	s := newOpenStore(t,
		models.Message{ID: "m1", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "first", Timestamp: baseTime},
	)
	s.ApplyMessage(&models.Message{ID: "m2", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "second", Timestamp: baseTime.Add(time.Minute)})

	s.RemoveMessage("r1", "m2")

	if msgs := s.Messages("r1"); len(msgs) != 1 {
		t.Fatalf("log len = %d, want 1", len(msgs))
	}
	r, _ := s.Room("r1")
	if r.LastMessage != "first" || r.LastMessageID != "m1" {
		t.Errorf("room preview after delete = %+v", r)
	}
}

func TestStore_ApplySeen(t *testing.T) {
	s := newOpenStore(t,
		models.Message{ID: "m1", RoomID: "r1", SenderID: "u1", SenderName: "alice", Content: "hi", Status: models.StatusSent, Timestamp: baseTime},
		models.Message{ID: "m2", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "yo", Timestamp: baseTime.Add(time.Minute)},
	)

	s.ApplySeen("r1", "u2")

	msgs := s.Messages("r1")
	if msgs[0].Status != models.StatusSeen {
		t.Errorf("own message status = %q, want seen", msgs[0].Status)
	}
	if msgs[1].Status == models.StatusSeen {
		t.Errorf("reader's own message should not be marked seen: %+v", msgs[1])
	}
}

func TestStore_SnapshotIsolation(t *testing.T) {
	s := newOpenStore(t,
		models.Message{ID: "m1", RoomID: "r1", SenderID: "u2", SenderName: "bob", Content: "hi", Reactions: map[string][]string{"👍": {"u2"}}, Timestamp: baseTime},
	)

	snap := s.Messages("r1")
	snap[0].Content = "tampered"
	snap[0].Reactions["👍"] = append(snap[0].Reactions["👍"], "u9")

	got, _ := s.Message("r1", "m1")
	if got.Content != "hi" || len(got.Reactions["👍"]) != 1 {
		t.Errorf("snapshot mutation leaked into store: %+v", got)
	}
}
