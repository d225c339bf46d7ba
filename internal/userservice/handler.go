package userservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sushihentaime/bloglist/internal/common"
)

var (
	ErrAuthenticationFailure = fmt.Errorf("invalid authentication credentials")
)

func NewUserService(db *sql.DB, tokens *TokenService, mb common.MessageProducer, logger *slog.Logger) *UserService {
	return &UserService{
		m:      newUserModel(db),
		tokens: tokens,
		mb:     mb,
		logger: logger,
	}
}

// CreateUser registers a user account and publishes a user.created event.
func (s *UserService) CreateUser(ctx context.Context, username, name, password string) (*User, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	validateName(v, name)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := User{
		ID:       uuid.New(),
		Username: username,
		Name:     name,
	}

	err := u.Password.set(password)
	if err != nil {
		return nil, err
	}

	err = s.m.insertUser(ctx, &u)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, common.UserEvent{UserID: u.ID, Username: u.Username}, common.UserCreatedKey)

	return &u, nil
}

// LoginUser checks the credentials and issues a session token. An unknown
// username and a wrong password fail the same way.
func (s *UserService) LoginUser(ctx context.Context, username, password string) (*AuthToken, error) {
	v := common.NewValidator()
	validateCredentials(v, username, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.getUserByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrAuthenticationFailure
		default:
			return nil, err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrAuthenticationFailure
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	return &AuthToken{Token: token, Username: user.Username, Name: user.Name}, nil
}

func (s *UserService) GetUsers(ctx context.Context) ([]User, error) {
	return s.m.getUsers(ctx)
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.m.getUserByID(ctx, id)
}

// Authenticate resolves the identity carried by a presented token.
func (s *UserService) Authenticate(token string) (*Identity, error) {
	return s.tokens.Verify(token)
}

// publish logs instead of failing: by the time it runs the write is committed.
func (s *UserService) publish(ctx context.Context, event any, key common.BindingKey) {
	body, err := json.Marshal(event)
	if err == nil {
		err = s.mb.Publish(ctx, body, key, common.EventExchange)
	}
	if err != nil {
		s.logger.Error("could not publish event", slog.String("key", string(key)), slog.String("error", err.Error()))
	}
}
