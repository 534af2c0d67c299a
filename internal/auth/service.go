package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"menucms/internal/docstore"
	"menucms/internal/images"
	"menucms/internal/storage"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidRole        = errors.New("role must be manager or viewer")
	ErrLastManager        = errors.New("cannot remove the last manager")
)

type Service struct {
	repo     UserRepository
	tokens   *Tokens
	uploader *images.Uploader
	blobs    storage.BlobStore
	log      logrus.FieldLogger
}

func NewService(repo UserRepository, tokens *Tokens, uploader *images.Uploader, blobs storage.BlobStore, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, tokens: tokens, uploader: uploader, blobs: blobs, log: log}
}

type NewUser struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Password      string   `json:"password"`
	Role          string   `json:"role"`
	RestaurantIDs []string `json:"restaurantIds"`
}

// REGISTER
// The first account becomes a manager. Everyone after that starts as a
// viewer without restaurants until a manager grants access.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	role := RoleViewer
	if n == 0 {
		role = RoleManager
	}
	return s.CreateUser(ctx, NewUser{Name: name, Email: email, Password: password, Role: role})
}

// CreateUser is the manager path for adding accounts with a chosen role.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = emailKey(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !strings.Contains(in.Email, "@") || strings.Contains(in.Email, "/") {
		return nil, fmt.Errorf("%w: invalid email", ErrMissingFields)
	}
	if in.Role == "" {
		in.Role = RoleViewer
	}
	if !ValidRole(in.Role) {
		return nil, ErrInvalidRole
	}

	hashedPassword, err := bcrypt.GenerateFromPassword(
		[]byte(in.Password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &User{
		Name:          in.Name,
		Email:         in.Email,
		Password:      string(hashedPassword),
		Role:          in.Role,
		RestaurantIDs: in.RestaurantIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if user.RestaurantIDs == nil {
		user.RestaurantIDs = []string{}
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user created")
	return user, nil
}

// LOGIN
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword(
		[]byte(user.Password),
		[]byte(password),
	)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

type UserPatch struct {
	Name          *string   `json:"name"`
	Role          *string   `json:"role"`
	RestaurantIDs *[]string `json:"restaurantIds"`
}

func (s *Service) UpdateUser(ctx context.Context, id string, p UserPatch) (*User, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := docstore.Doc{"updatedAt": time.Now().UTC()}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, ErrMissingFields
		}
		fields["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Role != nil {
		if !ValidRole(*p.Role) {
			return nil, ErrInvalidRole
		}
		if current.IsManager() && *p.Role != RoleManager {
			if err := s.ensureAnotherManager(ctx, id); err != nil {
				return nil, err
			}
		}
		fields["role"] = *p.Role
	}
	if p.RestaurantIDs != nil {
		ids := *p.RestaurantIDs
		if ids == nil {
			ids = []string{}
		}
		fields["restaurantIds"] = ids
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.IsManager() {
		if err := s.ensureAnotherManager(ctx, id); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, user); err != nil {
		return err
	}
	s.deleteBlob(ctx, user.BackgroundPath)
	return nil
}

func (s *Service) ensureAnotherManager(ctx context.Context, exceptID string) error {
	users, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID != exceptID && u.IsManager() {
			return nil
		}
	}
	return ErrLastManager
}

// SetBackground stores a new personal background for the user and removes
// the previous one.
func (s *Service) SetBackground(ctx context.Context, userID string, data []byte) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	path, err := s.uploader.UploadUserBackground(ctx, userID, data)
	if err != nil {
		return nil, err
	}

	err = s.repo.Update(ctx, userID, docstore.Doc{
		"backgroundPath": path,
		"updatedAt":      time.Now().UTC(),
	})
	if err != nil {
		s.deleteBlob(ctx, path)
		return nil, err
	}

	if user.BackgroundPath != "" && user.BackgroundPath != path {
		s.deleteBlob(ctx, user.BackgroundPath)
	}
	return s.repo.FindByID(ctx, userID)
}

func (s *Service) deleteBlob(ctx context.Context, path string) {
	if path == "" {
		return
	}
	err := s.blobs.Delete(ctx, path)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.WithError(err).WithField("path", path).Warn("blob cleanup failed")
	}
}
