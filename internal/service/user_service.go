package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"go-contact-api/internal/model"
	"go-contact-api/pkg/apierror"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

type UserService struct {
	users    UserStore
	profiles ProfileStore
	tx       Transactor
	hasher   PasswordHasher
}

func NewUserService(users UserStore, profiles ProfileStore, tx Transactor, hasher PasswordHasher) *UserService {
	return &UserService{users: users, profiles: profiles, tx: tx, hasher: hasher}
}

func (s *UserService) List(ctx context.Context, q model.UserQuery) (model.UserList, error) {
	q.Search = strings.TrimSpace(q.Search)
	q.Role = strings.ToLower(strings.TrimSpace(q.Role))
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}

	users, total, err := s.users.List(ctx, q)
	if err != nil {
		return model.UserList{}, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + q.PerPage - 1) / q.PerPage
	}

	return model.UserList{
		Users: users,
		Meta: model.PageMeta{
			Page:       q.Page,
			PerPage:    q.PerPage,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := model.Role(strings.ToLower(strings.TrimSpace(req.Role)))

	fields := apierror.FieldErrors{}
	checkName(fields, name, maxAdminNameLength)
	if checkEmailFormat(fields, email) {
		taken, err := s.users.EmailExists(ctx, email, "")
		if err != nil {
			return model.User{}, err
		}
		if taken {
			fields.Add("email", "The email has already been taken.")
		}
	}
	checkPasswordLength(fields, req.Password)
	checkRole(fields, role)

	if err := fields.Err(); err != nil {
		return model.User{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.User{}, err
	}

	user := model.User{
		UUID:         uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return createUserWithProfile(ctx, s.users, s.profiles, &user)
	})
	if errors.Is(err, model.ErrEmailTaken) {
		return model.User{}, apierror.Validation(map[string][]string{
			"email": {"The email has already been taken."},
		})
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.User{}, model.ErrUserNotFound
	}

	return s.users.FindByUUID(ctx, id)
}

// Update applies only the fields present in patch; everything else on the
// stored user is left as is.
func (s *UserService) Update(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	fields := apierror.FieldErrors{}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		checkName(fields, name, maxAdminNameLength)
		user.Name = name
	}

	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if checkEmailFormat(fields, email) && email != user.Email {
			taken, err := s.users.EmailExists(ctx, email, user.UUID)
			if err != nil {
				return model.User{}, err
			}
			if taken {
				fields.Add("email", "The email has already been taken.")
			}
		}
		user.Email = email
	}

	if patch.Role != nil {
		role := model.Role(strings.ToLower(strings.TrimSpace(*patch.Role)))
		checkRole(fields, role)
		user.Role = role
	}

	if patch.Password != nil && checkPasswordLength(fields, *patch.Password) && fields.Empty() {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return model.User{}, err
		}
		user.PasswordHash = hash
	}

	if err := fields.Err(); err != nil {
		return model.User{}, err
	}

	if patch.Empty() {
		return user, nil
	}

	err = s.users.Update(ctx, &user)
	if errors.Is(err, model.ErrEmailTaken) {
		return model.User{}, apierror.Validation(map[string][]string{
			"email": {"The email has already been taken."},
		})
	}
	if err != nil {
		return model.User{}, err
	}

	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.users.SoftDelete(ctx, user.ID)
}

// SeedDefaults creates the stock admin and user accounts when their emails
// are free. Existing rows are never touched.
func (s *UserService) SeedDefaults(ctx context.Context, password string) error {
	defaults := []model.CreateUserRequest{
		{Name: "Admin", Email: "a@a.com", Password: password, Role: string(model.RoleAdmin)},
		{Name: "User", Email: "u@u.com", Password: password, Role: string(model.RoleUser)},
	}

	for _, req := range defaults {
		taken, err := s.users.EmailExists(ctx, req.Email, "")
		if err != nil {
			return err
		}
		if taken {
			continue
		}

		user, err := s.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("seed %s: %w", req.Email, err)
		}
		slog.Info("seeded default user", "email", user.Email, "role", user.Role)
	}

	return nil
}

func checkRole(fields apierror.FieldErrors, role model.Role) {
	switch {
	case role == "":
		fields.Add("role", "The role field is required.")
	case !role.Valid():
		fields.Add("role", "The selected role is invalid.")
	}
}
