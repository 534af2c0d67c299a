package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"menucms/internal/docstore"

	"github.com/google/uuid"
)

// DocUserRepository keeps users in the document store. A second collection
// keyed by email guards uniqueness and serves logins.
type DocUserRepository struct {
	store docstore.Store
}

func NewDocUserRepository(store docstore.Store) *DocUserRepository {
	return &DocUserRepository{store: store}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *DocUserRepository) Save(ctx context.Context, user *User) error {
	// Generate UUID if not already set
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	exists, err := r.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailTaken
	}

	ids := user.RestaurantIDs
	if ids == nil {
		ids = []string{}
	}

	return docstore.NewBatch(r.store).
		Set(UsersCollection, user.ID, docstore.Doc{
			"name":           user.Name,
			"email":          emailKey(user.Email),
			"role":           user.Role,
			"restaurantIds":  ids,
			"backgroundPath": user.BackgroundPath,
			"passwordHash":   user.Password,
			"createdAt":      user.CreatedAt,
			"updatedAt":      user.UpdatedAt,
		}).
		Set(UserEmailsCollection, emailKey(user.Email), docstore.Doc{
			"userId": user.ID,
		}).
		Commit(ctx)
}

func (r *DocUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	doc, err := r.store.Get(ctx, UsersCollection, id)
	if err != nil {
		return nil, err
	}
	return decodeUser(id, doc), nil
}

func (r *DocUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	idx, err := r.store.Get(ctx, UserEmailsCollection, emailKey(email))
	if err != nil {
		return nil, err
	}
	id, _ := idx["userId"].(string)
	return r.FindByID(ctx, id)
}

func (r *DocUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.store.Get(ctx, UserEmailsCollection, emailKey(email))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *DocUserRepository) List(ctx context.Context) ([]User, error) {
	snaps, err := r.store.List(ctx, UsersCollection)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, *decodeUser(s.ID, s.Data))
	}
	return out, nil
}

func (r *DocUserRepository) Count(ctx context.Context) (int, error) {
	snaps, err := r.store.List(ctx, UsersCollection)
	if err != nil {
		return 0, err
	}
	return len(snaps), nil
}

func (r *DocUserRepository) Update(ctx context.Context, id string, fields docstore.Doc) error {
	return r.store.Update(ctx, UsersCollection, id, fields)
}

func (r *DocUserRepository) Delete(ctx context.Context, user *User) error {
	return docstore.NewBatch(r.store).
		Delete(UsersCollection, user.ID).
		Delete(UserEmailsCollection, emailKey(user.Email)).
		Commit(ctx)
}

func decodeUser(id string, doc docstore.Doc) *User {
	u := &User{ID: id, RestaurantIDs: []string{}}
	u.Name, _ = doc["name"].(string)
	u.Email, _ = doc["email"].(string)
	u.Role, _ = doc["role"].(string)
	u.BackgroundPath, _ = doc["backgroundPath"].(string)
	u.Password, _ = doc["passwordHash"].(string)

	if list, ok := doc["restaurantIds"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				u.RestaurantIDs = append(u.RestaurantIDs, s)
			}
		}
	}
	if s, ok := doc["createdAt"].(string); ok {
		u.CreatedAt, _ = time.Parse(time.RFC3339Nano, s)
	}
	if s, ok := doc["updatedAt"].(string); ok {
		u.UpdatedAt, _ = time.Parse(time.RFC3339Nano, s)
	}
	if u.Role == "" {
		u.Role = RoleViewer
	}
	return u
}
