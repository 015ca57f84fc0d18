package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasiliy-maslov/shop-service/internal/auth"
	"github.com/vasiliy-maslov/shop-service/internal/user"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func newTokens() *auth.Tokens {
	return auth.NewTokens("test-secret", time.Hour)
}

func TestUserService_Register_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	tokens := newTokens()
	userService := user.NewService(mockRepo, tokens)

	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
		return u.Email == "newuser@example.com" && u.Role == auth.RoleCustomer && u.IsActive
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*user.User).ID = "u-1"
		}).
		Return(nil).
		Once()

	session, err := userService.Register(context.Background(), user.RegisterInput{
		Email:    "  NewUser@Example.com ",
		Name:     "Amara Okafor",
		Password: "Password123",
	})

	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, "u-1", session.User.ID)

	err = bcrypt.CompareHashAndPassword([]byte(session.User.PasswordHash), []byte("Password123"))
	require.NoError(t, err, "Password hash does not match raw password")

	p, err := tokens.Parse(session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u-1", p.UserID)
	require.Equal(t, auth.RoleCustomer, p.Role)

	mockRepo.AssertExpectations(t)
}

func TestUserService_Register_WeakPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo, newTokens())

	session, err := userService.Register(context.Background(), user.RegisterInput{
		Email:    "a@example.com",
		Name:     "Amara",
		Password: "password",
	})

	require.ErrorIs(t, err, user.ErrWeakPassword)
	require.Nil(t, session)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_Register_EmailExists(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo, newTokens())

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).
		Return(user.ErrEmailExists).
		Once()

	session, err := userService.Register(context.Background(), user.RegisterInput{
		Email:    "duplicate@example.com",
		Name:     "Test",
		Password: "Password123",
	})
	require.ErrorIs(t, err, user.ErrEmailExists)
	require.Nil(t, session)
	mockRepo.AssertExpectations(t)
}

func TestUserService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.MinCost)
	require.NoError(t, err)

	active := &user.User{ID: "u-1", Email: "a@example.com", PasswordHash: string(hash), Role: auth.RoleAdmin, IsActive: true}
	inactive := &user.User{ID: "u-2", Email: "b@example.com", PasswordHash: string(hash), Role: auth.RoleCustomer}

	tests := []struct {
		name      string
		email     string
		password  string
		setup     func(m *MockUserRepository)
		wantErrIs error
	}{
		{
			name:     "success",
			email:    "A@example.com",
			password: "Password123",
			setup: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "a@example.com").Return(active, nil).Once()
			},
		},
		{
			name:     "wrong_password",
			email:    "a@example.com",
			password: "Password124",
			setup: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "a@example.com").Return(active, nil).Once()
			},
			wantErrIs: user.ErrInvalidCredentials,
		},
		{
			name:     "unknown_email",
			email:    "nobody@example.com",
			password: "Password123",
			setup: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, user.ErrNotFound).Once()
			},
			wantErrIs: user.ErrInvalidCredentials,
		},
		{
			name:     "inactive",
			email:    "b@example.com",
			password: "Password123",
			setup: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "b@example.com").Return(inactive, nil).Once()
			},
			wantErrIs: user.ErrInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setup(mockRepo)
			userService := user.NewService(mockRepo, newTokens())

			session, err := userService.Login(context.Background(), tt.email, tt.password)
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				require.Nil(t, session)
			} else {
				require.NoError(t, err)
				require.NotEmpty(t, session.AccessToken)
				require.Equal(t, active.ID, session.User.ID)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_ResolvePrincipal(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo, newTokens())

	stored := &user.User{ID: "u-1", Email: "a@example.com", Name: "Amara", Role: auth.RoleBrandPartner, IsActive: true}
	mockRepo.On("GetByID", mock.Anything, "u-1").Return(stored, nil).Once()
	mockRepo.On("GetByID", mock.Anything, "u-2").Return(&user.User{ID: "u-2"}, nil).Once()
	mockRepo.On("GetByID", mock.Anything, "u-3").Return(nil, user.ErrNotFound).Once()
	mockRepo.On("GetByID", mock.Anything, "u-4").Return(nil, errors.New("connection refused")).Once()

	p, err := userService.ResolvePrincipal(context.Background(), "u-1")
	require.NoError(t, err)
	diff := cmp.Diff(&auth.Principal{UserID: "u-1", Email: "a@example.com", Name: "Amara", Role: auth.RoleBrandPartner}, p)
	require.Empty(t, diff)

	_, err = userService.ResolvePrincipal(context.Background(), "u-2")
	require.ErrorIs(t, err, user.ErrInactive)
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = userService.ResolvePrincipal(context.Background(), "u-3")
	require.ErrorIs(t, err, user.ErrNotFound)
	require.ErrorIs(t, err, auth.ErrUnauthorized)

	_, err = userService.ResolvePrincipal(context.Background(), "u-4")
	require.Error(t, err)
	require.NotErrorIs(t, err, auth.ErrUnauthorized)

	mockRepo.AssertExpectations(t)
}
