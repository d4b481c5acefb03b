package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"identra.org/internal/identity"
	"identra.org/internal/token"
)

type fakeStore struct {
	account  *identity.Account
	roles    []identity.Role
	findErr  error
	failures int
	resets   int
}

func (f *fakeStore) FindByUsername(ctx context.Context, username string) (*identity.Account, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.account == nil || f.account.Username != username {
		return nil, identity.ErrNotFound
	}
	return f.account, nil
}

func (f *fakeStore) Roles(ctx context.Context, accountID string) ([]identity.Role, error) {
	return f.roles, nil
}

func (f *fakeStore) RegisterLoginFailure(ctx context.Context, accountID string) error {
	f.failures++
	return nil
}

func (f *fakeStore) ResetLoginFailures(ctx context.Context, accountID string) error {
	f.resets++
	return nil
}

func (f *fakeStore) FindByID(context.Context, string) (*identity.Account, error) {
	panic("not used")
}
func (f *fakeStore) List(context.Context) ([]*identity.Account, error) { panic("not used") }
func (f *fakeStore) Create(context.Context, *identity.Account) error   { panic("not used") }
func (f *fakeStore) Delete(context.Context, string) error              { panic("not used") }
func (f *fakeStore) AssignRole(context.Context, string, identity.Role) error {
	panic("not used")
}
func (f *fakeStore) RemoveRole(context.Context, string, identity.Role) error {
	panic("not used")
}

func testService(t *testing.T, store identity.Store, opts ...ServiceOption) *Service {
	t.Helper()
	iss, err := token.NewIssuer(token.Config{
		Secret:   []byte("0123456789abcdef0123456789abcdef"),
		Issuer:   "identra",
		Audience: "identra-api",
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	svc, err := NewService(store, iss, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func activeAccount(t *testing.T, password string) *identity.Account {
	t.Helper()
	hash, err := identity.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &identity.Account{
		ID:           "acc-1",
		Username:     "alice",
		DisplayName:  "Alice",
		PasswordHash: hash,
		Active:       true,
	}
}

func TestLoginBlankInput(t *testing.T) {
	svc := testService(t, &fakeStore{})
	_, err := svc.Login(context.Background(), " ", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := testService(t, &fakeStore{})
	result, err := svc.Login(context.Background(), "ghost", "whatever")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Succeeded {
		t.Fatal("login must fail for unknown user")
	}
	if len(result.Errors) != 1 || result.Errors[0] != msgUserNotFound {
		t.Errorf("errors = %v, want [%q]", result.Errors, msgUserNotFound)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	account := activeAccount(t, "s3cret")
	account.Active = false
	svc := testService(t, &fakeStore{account: account})
	result, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Succeeded || result.Errors[0] != msgNotActivated {
		t.Errorf("result = %+v, want %q failure", result, msgNotActivated)
	}
}

func TestLoginLockedAccount(t *testing.T) {
	account := activeAccount(t, "s3cret")
	account.LockedUntil = time.Now().Add(time.Minute)
	svc := testService(t, &fakeStore{account: account})
	result, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Succeeded || result.Errors[0] != msgLocked {
		t.Errorf("result = %+v, want %q failure", result, msgLocked)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := &fakeStore{account: activeAccount(t, "s3cret")}
	svc := testService(t, store)
	result, err := svc.Login(context.Background(), "alice", "wrong")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Succeeded || result.Errors[0] != msgInvalidCredentials {
		t.Errorf("result = %+v, want %q failure", result, msgInvalidCredentials)
	}
	if store.failures != 1 {
		t.Errorf("failures = %d, want 1", store.failures)
	}
}

func TestLoginSuccess(t *testing.T) {
	store := &fakeStore{
		account: activeAccount(t, "s3cret"),
		roles:   []identity.Role{identity.RoleAdmin},
	}
	svc := testService(t, store)
	result, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !result.Succeeded {
		t.Fatalf("login failed: %v", result.Errors)
	}
	if result.Token == "" {
		t.Error("token must be set on success")
	}
	if time.Until(result.ExpiresAt) <= 0 {
		t.Error("expiry must be in the future")
	}
	if store.resets != 1 {
		t.Errorf("resets = %d, want 1", store.resets)
	}
	if store.failures != 0 {
		t.Errorf("failures = %d, want 0", store.failures)
	}
}

func TestLoginStoreErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	svc := testService(t, &fakeStore{findErr: boom})
	_, err := svc.Login(context.Background(), "alice", "s3cret")
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
