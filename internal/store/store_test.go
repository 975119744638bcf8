package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"teamchat/pkg/database"
	"teamchat/pkg/interfaces"
	"teamchat/pkg/types"
)

func createTestStore(t *testing.T) *Manager {
	t.Helper()

	config := &database.Config{
		DatabasePath:    filepath.Join(t.TempDir(), "test.db"),
		MaxConnections:  5,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	}

	manager, err := NewManager(config)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close() })

	return manager
}

// seedChannel provisions a channel with the given members.
func seedChannel(t *testing.T, m *Manager, channelID string, members ...string) {
	t.Helper()
	ctx := context.Background()

	if err := m.CreateChannel(ctx, channelID, "channel "+channelID); err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}
	for _, userID := range members {
		if err := m.CreateUser(ctx, userID, "User "+userID); err != nil {
			t.Fatalf("CreateUser %s failed: %v", userID, err)
		}
		if err := m.AddChannelMember(ctx, channelID, userID); err != nil {
			t.Fatalf("AddChannelMember %s failed: %v", userID, err)
		}
	}
}

func TestManager_ChannelMembers(t *testing.T) {
	m := createTestStore(t)
	seedChannel(t, m, "5", "user1", "user2", "user3")

	members, err := m.GetChannelMembers(context.Background(), "5")
	if err != nil {
		t.Fatalf("GetChannelMembers failed: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("Expected 3 members, got %d", len(members))
	}
	for i, want := range []string{"user1", "user2", "user3"} {
		if members[i] != want {
			t.Errorf("Member %d: expected %s, got %s", i, want, members[i])
		}
	}
}

func TestManager_ChannelMembersUnknownChannel(t *testing.T) {
	m := createTestStore(t)

	if _, err := m.GetChannelMembers(context.Background(), "404"); !errors.Is(err, interfaces.ErrChannelNotFound) {
		t.Errorf("Expected ErrChannelNotFound, got %v", err)
	}
}

func TestManager_UserChannels(t *testing.T) {
	m := createTestStore(t)
	seedChannel(t, m, "5", "user1", "user2")
	if err := m.CreateChannel(context.Background(), "7", "channel 7"); err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}
	if err := m.AddChannelMember(context.Background(), "7", "user1"); err != nil {
		t.Fatalf("AddChannelMember failed: %v", err)
	}

	channels, err := m.GetUserChannels(context.Background(), "user1")
	if err != nil {
		t.Fatalf("GetUserChannels failed: %v", err)
	}
	if len(channels) != 2 || channels[0] != "5" || channels[1] != "7" {
		t.Errorf("Expected channels [5 7], got %v", channels)
	}

	channels, err = m.GetUserChannels(context.Background(), "stranger")
	if err != nil {
		t.Fatalf("GetUserChannels failed for unknown user: %v", err)
	}
	if len(channels) != 0 {
		t.Errorf("Expected no channels, got %v", channels)
	}
}

func TestManager_UserStatus(t *testing.T) {
	m := createTestStore(t)
	seedChannel(t, m, "5", "user1")

	status, err := m.GetUserStatus(context.Background(), "user1")
	if err != nil {
		t.Fatalf("GetUserStatus failed: %v", err)
	}
	if status != types.StatusOffline {
		t.Errorf("New users start offline, got %s", status)
	}

	if err := m.SetUserStatus(context.Background(), "user1", types.StatusOnline); err != nil {
		t.Fatalf("SetUserStatus failed: %v", err)
	}
	status, err = m.GetUserStatus(context.Background(), "user1")
	if err != nil {
		t.Fatalf("GetUserStatus failed: %v", err)
	}
	if status != types.StatusOnline {
		t.Errorf("Expected online, got %s", status)
	}
}

func TestManager_SetUserStatusValidation(t *testing.T) {
	m := createTestStore(t)
	seedChannel(t, m, "5", "user1")

	if err := m.SetUserStatus(context.Background(), "user1", "away"); !errors.Is(err, types.ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
	if err := m.SetUserStatus(context.Background(), "ghost", types.StatusOnline); !errors.Is(err, interfaces.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestManager_MessagesAndThreads(t *testing.T) {
	m := createTestStore(t)
	seedChannel(t, m, "5", "user1", "user2")
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	parent := &types.Message{
		ID: "m1", ChannelID: "5", AuthorID: "user1",
		Content: "top level", CreatedAt: base,
	}
	if err := m.InsertMessage(ctx, parent); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	parentID := "m1"
	for i, id := range []string{"m2", "m3"} {
		reply := &types.Message{
			ID: id, ChannelID: "5", AuthorID: "user2", ParentID: &parentID,
			Content: "reply", CreatedAt: base.Add(time.Duration(i+1) * time.Minute),
		}
		if err := m.InsertMessage(ctx, reply); err != nil {
			t.Fatalf("InsertMessage reply failed: %v", err)
		}
	}

	second := &types.Message{
		ID: "m4", ChannelID: "5", AuthorID: "user2",
		Content: "another top level", CreatedAt: base.Add(time.Hour),
	}
	if err := m.InsertMessage(ctx, second); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	// Channel history carries only top-level messages, oldest first.
	messages, err := m.GetChannelMessages(ctx, "5", 0)
	if err != nil {
		t.Fatalf("GetChannelMessages failed: %v", err)
	}
	if len(messages) != 2 || messages[0].ID != "m1" || messages[1].ID != "m4" {
		t.Fatalf("Expected top-level [m1 m4], got %v", messageIDs(messages))
	}
	if messages[0].ParentID != nil {
		t.Error("Top-level message must have nil parent after round-trip")
	}

	limited, err := m.GetChannelMessages(ctx, "5", 1)
	if err != nil {
		t.Fatalf("GetChannelMessages with limit failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "m1" {
		t.Errorf("Expected [m1] with limit 1, got %v", messageIDs(limited))
	}

	replies, err := m.GetThreadReplies(ctx, "m1")
	if err != nil {
		t.Fatalf("GetThreadReplies failed: %v", err)
	}
	if len(replies) != 2 || replies[0].ID != "m2" || replies[1].ID != "m3" {
		t.Fatalf("Expected replies [m2 m3], got %v", messageIDs(replies))
	}
	if replies[0].ParentID == nil || *replies[0].ParentID != "m1" {
		t.Error("Reply must carry its parent after round-trip")
	}

	replies, err = m.GetThreadReplies(ctx, "m4")
	if err != nil {
		t.Fatalf("GetThreadReplies failed: %v", err)
	}
	if len(replies) != 0 {
		t.Errorf("Expected no replies under m4, got %v", messageIDs(replies))
	}
}

func messageIDs(messages []*types.Message) []string {
	ids := make([]string, len(messages))
	for i, message := range messages {
		ids[i] = message.ID
	}
	return ids
}

func TestManager_HealthCheck(t *testing.T) {
	m := createTestStore(t)

	if err := m.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed on a healthy store: %v", err)
	}
}

func TestManager_HealthCheckReleasesConnections(t *testing.T) {
	config := &database.Config{
		DatabasePath:    filepath.Join(t.TempDir(), "test.db"),
		MaxConnections:  1,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
	m, err := NewManager(config)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })

	// With a single pooled connection, a check that leaks its connection
	// starves every call after it.
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := m.HealthCheck(ctx)
		cancel()
		if err != nil {
			t.Fatalf("Health check %d starved of connections: %v", i+1, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := m.GetUserChannels(ctx, "user1"); err != nil {
		t.Errorf("Read after health checks failed: %v", err)
	}
}

func TestManager_CloseRejectsWrites(t *testing.T) {
	m := createTestStore(t)

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Second close must be a no-op, got %v", err)
	}

	err := m.SetUserStatus(context.Background(), "user1", types.StatusOnline)
	if !errors.Is(err, interfaces.ErrStoreClosed) {
		t.Errorf("Expected ErrStoreClosed, got %v", err)
	}
}

func TestManager_CreateUserValidation(t *testing.T) {
	m := createTestStore(t)

	if err := m.CreateUser(context.Background(), "bad user", "Bad"); !errors.Is(err, types.ErrInvalidUserID) {
		t.Errorf("Expected ErrInvalidUserID, got %v", err)
	}
	if err := m.CreateChannel(context.Background(), "", "Empty"); !errors.Is(err, types.ErrInvalidChannelID) {
		t.Errorf("Expected ErrInvalidChannelID, got %v", err)
	}
}
