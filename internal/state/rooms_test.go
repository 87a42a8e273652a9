package state

import (
	"testing"
	"time"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
)

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func mkRoom(id string, pinned bool, updatedAt time.Time) models.Room {
	return models.Room{ID: id, Name: id, Kind: models.RoomGroup, IsPinned: pinned, UpdatedAt: updatedAt}
}

// assertRoomOrder 校验房间索引的固定总序：置顶在前，组内活动时间不增。
func assertRoomOrder(t *testing.T, rooms []models.Room) {
	t.Helper()
	for i := 1; i < len(rooms); i++ {
		prev, cur := rooms[i-1], rooms[i]
		if !prev.IsPinned && cur.IsPinned {
			t.Fatalf("pinned room %s sorted after unpinned %s", cur.ID, prev.ID)
		}
		if prev.IsPinned == cur.IsPinned && prev.UpdatedAt.Before(cur.UpdatedAt) {
			t.Fatalf("room %s (%v) sorted before newer %s (%v)", prev.ID, prev.UpdatedAt, cur.ID, cur.UpdatedAt)
		}
	}
}

func TestStore_RoomOrder(t *testing.T) {
	s := NewStore()
	s.ReplaceRooms([]models.Room{
		mkRoom("a", false, baseTime.Add(3*time.Minute)),
		mkRoom("b", true, baseTime.Add(1*time.Minute)),
		mkRoom("c", false, baseTime.Add(5*time.Minute)),
		mkRoom("d", true, baseTime.Add(2*time.Minute)),
	})

	rooms := s.Rooms()
	assertRoomOrder(t, rooms)
	if rooms[0].ID != "d" || rooms[1].ID != "b" {
		t.Errorf("pinned head = %s,%s, want d,b", rooms[0].ID, rooms[1].ID)
	}

	// 一条新消息把普通房间推到非置顶段的最前，但仍在置顶段之后
	s.AppendLocal(&models.Message{ID: "m1", RoomID: "a", SenderID: "u1", SenderName: "alice", Content: "hi", Timestamp: baseTime.Add(10 * time.Minute)})
	rooms = s.Rooms()
	assertRoomOrder(t, rooms)
	if rooms[2].ID != "a" {
		t.Errorf("rooms[2] = %s, want a", rooms[2].ID)
	}
}

func TestStore_InsertRoomIdempotent(t *testing.T) {
	s := NewStore()
	s.ReplaceRooms([]models.Room{mkRoom("a", false, baseTime)})

	dup := mkRoom("a", false, baseTime.Add(time.Hour))
	dup.Name = "renamed"
	s.InsertRoom(dup)

	rooms := s.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("rooms = %d, want 1", len(rooms))
	}
	if rooms[0].Name != "a" {
		t.Errorf("existing room overwritten by duplicate insert: %+v", rooms[0])
	}
}

func TestStore_MergeRoomKeepsUnread(t *testing.T) {
	s := NewStore()
	r := mkRoom("a", false, baseTime)
	r.UnreadCount = 3
	s.ReplaceRooms([]models.Room{r})

	update := mkRoom("a", true, baseTime.Add(time.Minute))
	update.Name = "renamed"
	s.MergeRoom(update)

	got, ok := s.Room("a")
	if !ok {
		t.Fatal("room a missing after merge")
	}
	if got.Name != "renamed" || !got.IsPinned {
		t.Errorf("merge did not apply metadata: %+v", got)
	}
	if got.UnreadCount != 3 {
		t.Errorf("UnreadCount = %d, want 3 (local counter preserved)", got.UnreadCount)
	}
}

func TestStore_RemoveRoomClearsOpen(t *testing.T) {
	s := NewStore()
	s.ReplaceRooms([]models.Room{mkRoom("a", false, baseTime)})
	s.SetOpenRoom("a", nil)

	s.RemoveRoom("a")

	if got := s.OpenRoomID(); got != "" {
		t.Errorf("OpenRoomID() = %q, want empty after removal", got)
	}
	if msgs := s.Messages("a"); len(msgs) != 0 {
		t.Errorf("log survived room removal: %d messages", len(msgs))
	}
}
