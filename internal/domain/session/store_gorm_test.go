package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/reservio/reservio/internal/utils"
)

func newTestGormStore(t *testing.T) (*gormStore, *gorm.DB) {
	t.Helper()

	db := utils.SetupTestDB(t, Model())
	db.Exec("DELETE FROM sessions")

	return newGormStore(db), db
}

func TestGormStore_CreateGet(t *testing.T) {
	store, _ := newTestGormStore(t)
	ctx := context.Background()

	sess := testSession("00000000-0000-0000-0000-000000000001", time.Hour)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}

	if got.ID != sess.ID {
		t.Errorf("Get() id = %s, want %s", got.ID, sess.ID)
	}
	if got.Revoked {
		t.Errorf("Get() revoked should be false after create")
	}
	if !got.ExpiresAt.After(got.CreatedAt) {
		t.Errorf("Get() expiresAt must be after createdAt")
	}
	if got.TokenHash != sess.TokenHash {
		t.Errorf("Get() tokenHash mismatch")
	}
	if got.Metadata.UserAgent != sess.Metadata.UserAgent {
		t.Errorf("Get() metadata not round-tripped: %+v", got.Metadata)
	}
}

func TestGormStore_Get_Missing(t *testing.T) {
	store, _ := newTestGormStore(t)

	_, err := store.Get(context.Background(), NewSessionID())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestGormStore_Create_RejectsInvalidID(t *testing.T) {
	store, _ := newTestGormStore(t)

	sess := testSession("00000000-0000-0000-0000-000000000001", time.Hour)
	sess.ID = "not-a-uuid"

	if err := store.Create(context.Background(), sess); err == nil {
		t.Errorf("Create() with invalid id expected error")
	}
}

func TestGormStore_ListByUser_NewestFirstNonRevoked(t *testing.T) {
	store, _ := newTestGormStore(t)
	ctx := context.Background()

	userID := "00000000-0000-0000-0000-000000000001"
	base := time.Now().UTC().Truncate(time.Second)

	var ids []string
	for i := 0; i < 3; i++ {
		sess := testSession(userID, time.Hour)
		sess.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		ids = append(ids, sess.ID)
	}

	if err := store.Revoke(ctx, ids[1]); err != nil {
		t.Fatalf("Revoke() unexpected error: %v", err)
	}

	list, err := store.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser() unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByUser() returned %d sessions, want 2", len(list))
	}
	if list[0].ID != ids[2] || list[1].ID != ids[0] {
		t.Errorf("ListByUser() order = [%s %s], want newest first without revoked", list[0].ID, list[1].ID)
	}
}

func TestGormStore_Touch(t *testing.T) {
	store, _ := newTestGormStore(t)
	ctx := context.Background()

	sess := testSession("00000000-0000-0000-0000-000000000001", time.Hour)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	at := time.Now().UTC().Add(time.Minute).Truncate(time.Millisecond)
	if err := store.Touch(ctx, sess.ID, at); err != nil {
		t.Fatalf("Touch() unexpected error: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if !got.LastSeen.Equal(at) {
		t.Errorf("Touch() lastSeen = %v, want %v", got.LastSeen, at)
	}
}

func TestGormStore_Touch_RevokedNotAdvanced(t *testing.T) {
	store, _ := newTestGormStore(t)
	ctx := context.Background()

	sess := testSession("00000000-0000-0000-0000-000000000001", time.Hour)
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if err := store.Revoke(ctx, sess.ID); err != nil {
		t.Fatalf("Revoke() unexpected error: %v", err)
	}

	err := store.Touch(ctx, sess.ID, time.Now().UTC())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Touch() on revoked session error = %v, want ErrSessionNotFound", err)
	}
}

func TestGormStore_UpdateTokenHash(t *testing.T) {
	store, _ := newTestGormStore(t)
	ctx := context.Background()

	sess := testSession("00000000-0000-0000-0000-000000000001", time.Hour)
	sess.TokenHash = ""
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	finalHash := HashToken("signed-token")
	if err := store.UpdateTokenHash(ctx, sess.ID, finalHash); err != nil {
		t.Fatalf("UpdateTokenHash() unexpected error: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.TokenHash != finalHash {
		t.Errorf("UpdateTokenHash() hash = %q, want %q", got.TokenHash, finalHash)
	}
}

func TestGormStore_RevokeAllForUser(t *testing.T) {
	store, _ := newTestGormStore(t)
	ctx := context.Background()

	userID := "00000000-0000-0000-0000-000000000001"
	otherID := "00000000-0000-0000-0000-000000000002"

	var ids []string
	for i := 0; i < 3; i++ {
		sess := testSession(userID, time.Hour)
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("Create() unexpected error: %v", err)
		}
		ids = append(ids, sess.ID)
	}
	other := testSession(otherID, time.Hour)
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	if err := store.RevokeAllForUser(ctx, userID); err != nil {
		t.Fatalf("RevokeAllForUser() unexpected error: %v", err)
	}

	for _, id := range ids {
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() unexpected error: %v", err)
		}
		if !got.Revoked {
			t.Errorf("session %s not revoked", id)
		}
	}

	got, err := store.Get(ctx, other.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.Revoked {
		t.Errorf("other user's session was revoked")
	}
}

func TestGormStore_PruneExpired_RemovesOnlyExpired(t *testing.T) {
	store, _ := newTestGormStore(t)
	ctx := context.Background()

	userID := "00000000-0000-0000-0000-000000000001"

	expired := testSession(userID, time.Hour)
	expired.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	if err := store.Create(ctx, expired); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	active := testSession(userID, time.Hour)
	if err := store.Create(ctx, active); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	removed, err := store.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("PruneExpired() unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("PruneExpired() = %d, want 1", removed)
	}

	if _, err := store.Get(ctx, expired.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() expired row error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.Get(ctx, active.ID); err != nil {
		t.Errorf("Get() active row error = %v, want nil", err)
	}
}

func TestGormStore_DeleteRevoked(t *testing.T) {
	store, _ := newTestGormStore(t)
	ctx := context.Background()

	userID := "00000000-0000-0000-0000-000000000001"

	dead := testSession(userID, time.Hour)
	if err := store.Create(ctx, dead); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if err := store.Revoke(ctx, dead.ID); err != nil {
		t.Fatalf("Revoke() unexpected error: %v", err)
	}

	live := testSession(userID, time.Hour)
	if err := store.Create(ctx, live); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	removed, err := store.DeleteRevoked(ctx)
	if err != nil {
		t.Fatalf("DeleteRevoked() unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("DeleteRevoked() = %d, want 1", removed)
	}

	if _, err := store.Get(ctx, dead.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() revoked row error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.Get(ctx, live.ID); err != nil {
		t.Errorf("Get() live row error = %v, want nil", err)
	}
}
