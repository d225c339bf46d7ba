package userservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/bloglist/internal/common"
)

func testUser() User {
	return User{
		Username: "lima",
		Name:     "Pedro Lima",
		Password: Password{
			Plain: "lima2024",
		},
	}
}

func setupTestEnvironment(t *testing.T) (*UserService, *sql.DB, *common.MockMessageProducer, func() error) {
	db := common.TestDB("file://../../migrations", t)

	tokens, err := NewTokenService([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	mb := new(common.MockMessageProducer)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cleanup := func() error {
		_, err := db.Exec("DELETE FROM users")
		return err
	}

	return NewUserService(db, tokens, mb, logger), db, mb, cleanup
}

func countUsers(t *testing.T, db *sql.DB) int {
	t.Helper()

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	require.NoError(t, err)

	return count
}

func TestCreateUser(t *testing.T) {
	s, db, mb, cleanup := setupTestEnvironment(t)
	mb.On("Publish", mock.Anything, common.UserCreatedKey, common.EventExchange).Return(nil)

	testCases := []struct {
		name        string
		payload     User
		setup       func() error
		expectedErr error
	}{
		{
			name:    "valid user",
			payload: testUser(),
		},
		{
			name: "empty username",
			payload: User{
				Name:     testUser().Name,
				Password: testUser().Password,
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"username": "must be provided"}},
		},
		{
			name: "short username",
			payload: User{
				Username: "pe",
				Password: testUser().Password,
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"username": "must be between 3 and 50 characters long"}},
		},
		{
			name: "empty password",
			payload: User{
				Username: testUser().Username,
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"password": "must be provided"}},
		},
		{
			name: "short password",
			payload: User{
				Username: testUser().Username,
				Password: Password{Plain: "li"},
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"password": "must be at least 3 characters long"}},
		},
		{
			name:    "duplicate username",
			payload: testUser(),
			setup: func() error {
				_, err := db.Exec("INSERT INTO users (id, username, name, password_hash) VALUES ($1, $2, $3, $4)", uuid.New(), "lima", "", []byte("digest"))
				return err
			},
			expectedErr: ErrDuplicateUsername,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if tc.setup != nil {
				require.NoError(t, tc.setup())
			}
			before := countUsers(t, db)

			u, err := s.CreateUser(ctx, tc.payload.Username, tc.payload.Name, tc.payload.Password.Plain)
			assert.Equal(t, tc.expectedErr, err)

			if err == nil {
				assert.Equal(t, before+1, countUsers(t, db))
				assert.NotEqual(t, uuid.Nil, u.ID)
				assert.Empty(t, u.OwnedBlogs)

				var digest []byte
				err = db.QueryRow("SELECT password_hash FROM users WHERE id = $1", u.ID).Scan(&digest)
				require.NoError(t, err)
				assert.NotEmpty(t, digest)
				assert.NotEqual(t, []byte(tc.payload.Password.Plain), digest)
			} else {
				assert.Nil(t, u)
				assert.Equal(t, before, countUsers(t, db))
			}

			t.Cleanup(func() {
				assert.NoError(t, cleanup())
			})
		})
	}

	mb.AssertNumberOfCalls(t, "Publish", 1)
}

func TestCreateUser_PublishesEvent(t *testing.T) {
	s, _, mb, cleanup := setupTestEnvironment(t)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })

	var body []byte
	mb.On("Publish", mock.Anything, common.UserCreatedKey, common.EventExchange).
		Run(func(args mock.Arguments) { body = args.Get(0).([]byte) }).
		Return(io.ErrClosedPipe)

	// a broker failure does not undo the registration
	u, err := s.CreateUser(context.Background(), "hellas", "Arto Hellas", "sekret")
	require.NoError(t, err)

	var event common.UserEvent
	require.NoError(t, json.Unmarshal(body, &event))
	assert.Equal(t, common.UserEvent{UserID: u.ID, Username: "hellas"}, event)
}

func TestLoginUser(t *testing.T) {
	s, _, mb, cleanup := setupTestEnvironment(t)
	mb.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })

	ctx := context.Background()
	u, err := s.CreateUser(ctx, "lima", "Pedro Lima", "lima2024")
	require.NoError(t, err)

	testCases := []struct {
		name        string
		username    string
		password    string
		expectedErr error
	}{
		{name: "valid credentials", username: "lima", password: "lima2024"},
		{name: "wrong password", username: "lima", password: "wrong", expectedErr: ErrAuthenticationFailure},
		{name: "unknown user", username: "nobody", password: "lima2024", expectedErr: ErrAuthenticationFailure},
		{
			name:        "empty payload",
			expectedErr: common.ValidationError{Errors: map[string]string{"username": "must be provided", "password": "must be provided"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := s.LoginUser(ctx, tc.username, tc.password)
			assert.Equal(t, tc.expectedErr, err)

			if err != nil {
				assert.Nil(t, token)
				return
			}

			assert.Equal(t, "lima", token.Username)
			assert.Equal(t, "Pedro Lima", token.Name)

			identity, err := s.Authenticate(token.Token)
			require.NoError(t, err)
			assert.Equal(t, u.ID, identity.UserID)
			assert.Equal(t, u.Username, identity.Username)
		})
	}
}

func TestGetUsers(t *testing.T) {
	s, db, mb, cleanup := setupTestEnvironment(t)
	mb.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })

	ctx := context.Background()

	users, err := s.GetUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	u, err := s.CreateUser(ctx, "abramov", "Dan Abramov", "secret")
	require.NoError(t, err)

	blogID := uuid.New()
	_, err = db.Exec("UPDATE users SET owned_blogs = ARRAY[$1::uuid] WHERE id = $2", blogID, u.ID)
	require.NoError(t, err)

	users, err = s.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "abramov", users[0].Username)
	assert.Equal(t, []uuid.UUID{blogID}, users[0].OwnedBlogs)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dan Abramov", got.Name)

	_, err = s.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
