package store

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/tansyhq/choreboard/internal/database"
	"github.com/tansyhq/choreboard/internal/model"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db)
}

func TestSeedAdminExists(t *testing.T) {
	us := setupUserTestDB(t)

	users, err := us.List()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("fresh database has %d users, want 1", len(users))
	}
	if users[0].Name != "Admin" || users[0].Role != model.RoleAdmin {
		t.Errorf("seed user = %s/%s, want Admin/admin", users[0].Name, users[0].Role)
	}
}

func TestUserCRUD(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("Alice", model.RoleStandard, "🐱", "#FF0000")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Name != "Alice" {
		t.Errorf("name = %q, want Alice", u.Name)
	}
	if u.Role != model.RoleStandard {
		t.Errorf("role = %q, want standard", u.Role)
	}
	if u.HasPIN {
		t.Error("new user should not have a PIN")
	}

	got, err := us.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.AvatarEmoji != "🐱" || got.Color != "#FF0000" {
		t.Errorf("got %s/%s, want 🐱/#FF0000", got.AvatarEmoji, got.Color)
	}

	updated, err := us.Update(u.ID, "Alicia", "🐶", "#00FF00")
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Name != "Alicia" || updated.AvatarEmoji != "🐶" || updated.Color != "#00FF00" {
		t.Errorf("updated = %s/%s/%s", updated.Name, updated.AvatarEmoji, updated.Color)
	}
	// Role stays what it was; Update only touches display preferences.
	if updated.Role != model.RoleStandard {
		t.Errorf("role after update = %q, want standard", updated.Role)
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := setupUserTestDB(t)

	got, err := us.GetByID(9999)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserListIsNameOrdered(t *testing.T) {
	us := setupUserTestDB(t)

	us.Create("Zoe", model.RoleStandard, "Z", "#111111")
	us.Create("Bob", model.RoleStandard, "B", "#222222")

	users, err := us.List()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	want := []string{"Admin", "Bob", "Zoe"}
	if len(users) != len(want) {
		t.Fatalf("got %d users, want %d", len(users), len(want))
	}
	for i := range want {
		if users[i].Name != want[i] {
			t.Errorf("users[%d] = %q, want %q", i, users[i].Name, want[i])
		}
	}
}

func TestNameExists(t *testing.T) {
	us := setupUserTestDB(t)

	u, _ := us.Create("Alice", model.RoleStandard, "A", "#FF0000")

	exists, err := us.NameExists("Alice", 0)
	if err != nil {
		t.Fatalf("name exists: %v", err)
	}
	if !exists {
		t.Error("Alice should exist")
	}

	// Excluding the holder's own id makes a self-rename legal.
	exists, err = us.NameExists("Alice", u.ID)
	if err != nil {
		t.Fatalf("name exists: %v", err)
	}
	if exists {
		t.Error("Alice excluded by her own id should not count")
	}

	exists, _ = us.NameExists("Nobody", 0)
	if exists {
		t.Error("Nobody should not exist")
	}
}

func TestPINSetAndVerify(t *testing.T) {
	us := setupUserTestDB(t)

	u, _ := us.Create("Alice", model.RoleStandard, "A", "#FF0000")

	hash, err := us.GetPINHash(u.ID)
	if err != nil {
		t.Fatalf("get pin hash: %v", err)
	}
	if hash != "" {
		t.Error("fresh user should have no PIN hash")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	if err := us.SetPIN(u.ID, string(hashed)); err != nil {
		t.Fatalf("set pin: %v", err)
	}

	hash, err = us.GetPINHash(u.ID)
	if err != nil {
		t.Fatalf("get pin hash: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("1234")); err != nil {
		t.Errorf("stored hash does not match pin: %v", err)
	}

	got, _ := us.GetByID(u.ID)
	if !got.HasPIN {
		t.Error("HasPIN should be true after SetPIN")
	}
}
