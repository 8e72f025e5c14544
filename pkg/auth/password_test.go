package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/taskdeck/taskdeck/pkg/domain"
	"github.com/taskdeck/taskdeck/pkg/repository"
)

type fakeUserStore struct {
	byEmail map[string]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*domain.User)}
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *fakeUserStore) CreateTx(ctx context.Context, q repository.Querier, user *domain.User) error {
	s.byEmail[user.Email] = user
	return nil
}

type fakeCredentialStore struct {
	byUserID map[uuid.UUID]*domain.UserPassword
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{byUserID: make(map[uuid.UUID]*domain.UserPassword)}
}

func (s *fakeCredentialStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserPassword, error) {
	cred, ok := s.byUserID[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cred, nil
}

func (s *fakeCredentialStore) CreateTx(ctx context.Context, q repository.Querier, cred *domain.UserPassword) error {
	s.byUserID[cred.UserID] = cred
	return nil
}

// seedUser registers a user directly in the fakes, bypassing the transaction.
func seedUser(t *testing.T, users *fakeUserStore, creds *fakeCredentialStore, email, password string) *domain.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	users.byEmail[email] = user
	creds.byUserID[user.ID] = &domain.UserPassword{
		UserID:            user.ID,
		PasswordHash:      hash,
		PasswordUpdatedAt: time.Now(),
	}
	return user
}

func newTestService(users *fakeUserStore, creds *fakeCredentialStore, store *fakeFailureStore) *PasswordService {
	return NewPasswordService(nil, users, creds, NewLockout(store, 5, 15*time.Minute))
}

func TestRegister_Validation(t *testing.T) {
	service := newTestService(newFakeUserStore(), newFakeCredentialStore(), newFakeFailureStore())

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "empty email", email: "", password: "password123"},
		{name: "email without at sign", email: "not-an-email", password: "password123"},
		{name: "short password", email: "user@example.com", password: "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), tt.email, tt.password, "")
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Register(%q, %q) error = %v, want ErrValidation", tt.email, tt.password, err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := newFakeUserStore()
	creds := newFakeCredentialStore()
	seedUser(t, users, creds, "taken@example.com", "password123")
	service := newTestService(users, creds, newFakeFailureStore())

	_, err := service.Register(context.Background(), "taken@example.com", "password123", "")
	if !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("Register duplicate error = %v, want ErrUserAlreadyExists", err)
	}

	// The same identity with different casing is still a duplicate.
	_, err = service.Register(context.Background(), "  TAKEN@Example.COM ", "password123", "")
	if !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("Register case-variant duplicate error = %v, want ErrUserAlreadyExists", err)
	}
}

func TestAuthenticate_Success(t *testing.T) {
	users := newFakeUserStore()
	creds := newFakeCredentialStore()
	want := seedUser(t, users, creds, "user@example.com", "correct-horse1")
	service := newTestService(users, creds, newFakeFailureStore())

	got, err := service.Authenticate(context.Background(), "User@Example.com", "correct-horse1")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("user ID = %v, want %v", got.ID, want.ID)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	users := newFakeUserStore()
	creds := newFakeCredentialStore()
	seedUser(t, users, creds, "user@example.com", "correct-horse1")
	store := newFakeFailureStore()
	service := newTestService(users, creds, store)

	_, err := service.Authenticate(context.Background(), "user@example.com", "wrong-password")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("Authenticate error = %v, want ErrInvalidCredentials", err)
	}

	rec := store.records["user@example.com"]
	if rec == nil || rec.FailedAttempts != 1 {
		t.Errorf("failure record = %+v, want 1 failed attempt", rec)
	}
}

func TestAuthenticate_UnknownUserSameError(t *testing.T) {
	users := newFakeUserStore()
	creds := newFakeCredentialStore()
	seedUser(t, users, creds, "user@example.com", "correct-horse1")
	service := newTestService(users, creds, newFakeFailureStore())

	knownErr := func() error {
		_, err := service.Authenticate(context.Background(), "user@example.com", "wrong-password")
		return err
	}()
	unknownErr := func() error {
		_, err := service.Authenticate(context.Background(), "ghost@example.com", "wrong-password")
		return err
	}()

	if !errors.Is(knownErr, domain.ErrInvalidCredentials) || !errors.Is(unknownErr, domain.ErrInvalidCredentials) {
		t.Errorf("known = %v, unknown = %v, want both ErrInvalidCredentials", knownErr, unknownErr)
	}
	if knownErr.Error() != unknownErr.Error() {
		t.Errorf("error text differs: %q vs %q", knownErr, unknownErr)
	}
}

func TestAuthenticate_UnknownIdentifierCountsTowardLockout(t *testing.T) {
	service := newTestService(newFakeUserStore(), newFakeCredentialStore(), newFakeFailureStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := service.Authenticate(ctx, "ghost@example.com", "whatever1")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d error = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	_, err := service.Authenticate(ctx, "ghost@example.com", "whatever1")
	var locked *domain.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("attempt 6 error = %v, want LockedError", err)
	}
}

func TestAuthenticate_LockedBeforeCredentialCheck(t *testing.T) {
	users := newFakeUserStore()
	creds := newFakeCredentialStore()
	seedUser(t, users, creds, "user@example.com", "correct-horse1")
	store := newFakeFailureStore()
	service := newTestService(users, creds, store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		service.Authenticate(ctx, "user@example.com", "wrong-password")
	}

	// Even the correct password is rejected while locked.
	_, err := service.Authenticate(ctx, "user@example.com", "correct-horse1")
	var locked *domain.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("Authenticate while locked = %v, want LockedError", err)
	}
	if locked.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want positive", locked.RetryAfter)
	}
}

func TestAuthenticate_SuccessClearsFailures(t *testing.T) {
	users := newFakeUserStore()
	creds := newFakeCredentialStore()
	seedUser(t, users, creds, "user@example.com", "correct-horse1")
	store := newFakeFailureStore()
	service := newTestService(users, creds, store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		service.Authenticate(ctx, "user@example.com", "wrong-password")
	}

	if _, err := service.Authenticate(ctx, "user@example.com", "correct-horse1"); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if rec := store.records["user@example.com"]; rec != nil {
		t.Errorf("failure record = %+v, want cleared", rec)
	}
}

func TestPasswordService_Argon2Parameters(t *testing.T) {
	if argon2Time != 1 {
		t.Errorf("argon2Time = %d, want 1", argon2Time)
	}
	if argon2Memory != 64*1024 {
		t.Errorf("argon2Memory = %d, want %d", argon2Memory, 64*1024)
	}
	if argon2Threads != 4 {
		t.Errorf("argon2Threads = %d, want 4", argon2Threads)
	}
	if argon2KeyLen != 32 {
		t.Errorf("argon2KeyLen = %d, want 32", argon2KeyLen)
	}
	if saltLen != 16 {
		t.Errorf("saltLen = %d, want 16", saltLen)
	}
}

func TestPasswordHashing_CaseSensitive(t *testing.T) {
	hash, err := HashPassword("TestPassword123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{name: "exact match", password: "TestPassword123", want: true},
		{name: "lowercase", password: "testpassword123", want: false},
		{name: "uppercase", password: "TESTPASSWORD123", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPassword(tt.password, hash); got != tt.want {
				t.Errorf("VerifyPassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password should differ")
	}
	if !VerifyPassword("same-password", first) || !VerifyPassword("same-password", second) {
		t.Error("both hashes should verify")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "not argon2", hash: "$bcrypt$whatever"},
		{name: "truncated", hash: "$argon2id$v=19$m=65536"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyPassword("password", tt.hash) {
				t.Errorf("VerifyPassword with malformed hash %q = true, want false", tt.hash)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "User@Example.COM", want: "user@example.com"},
		{in: "  spaced@example.com  ", want: "spaced@example.com"},
		{in: "already@example.com", want: "already@example.com"},
	}

	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
