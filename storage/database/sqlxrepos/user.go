package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/user"
	"github.com/crec/backoffice/storage/database"
)

const userTable = "app_user"

var (
	userColumns = []string{
		"id", "name", "COALESCE(username, '') AS username", "COALESCE(email, '') AS email", "is_active", "roles",
		"password_hash", "created_at", "updated_at", "last_login",
	}
	userOrderings = map[string]string{
		"name":       "name",
		"username":   "username",
		"email":      "email",
		"is_active":  "is_active",
		"created_at": "created_at",
		"last_login": "last_login",
	}
)

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *database.DB) *userRepository {
	return &userRepository{repo{db: db}}
}

// nullable stores empty usernames & emails as NULL so that the UNIQUE constraints ignore them.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (repo userRepository) values(usr user.User) map[string]interface{} {
	return map[string]interface{}{
		"name":          usr.Name,
		"username":      nullable(usr.Username),
		"email":         nullable(usr.Email),
		"is_active":     usr.IsActive,
		"roles":         usr.Roles,
		"password_hash": usr.PasswordHash,
		"created_at":    usr.CreatedAt.UTC(),
		"updated_at":    usr.UpdatedAt.UTC(),
		"last_login":    utcPtr(usr.LastLogin),
	}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var ids []string
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}

	check := func(col, val string, errExists error) error {
		if val == "" {
			return nil
		}
		b := repo.db.Builder.Select("COUNT(*)").From(userTable).Where(sq.Eq{col: val})
		if len(ids) > 0 {
			b = b.Where(sq.NotEq{"id": ids})
		}
		n, err := repo.count(ctx, b, "checking user uniqueness")
		if err != nil {
			return err
		}
		if n > 0 {
			return errExists
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID()
	values := repo.values(usr)
	values["id"] = usr.ID
	if _, err := repo.run(ctx, repo.db.Builder.Insert(userTable).SetMap(values), "inserting user"); err != nil {
		return user.User{}, err
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	b := repo.db.Builder.Select(userColumns...).From(userTable)

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			b = b.Where(search(filter.Search, "name", "username", "email"))
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roles := make(sq.Or, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roles = append(roles, like("roles", `%"`, role, "%"))
			}
			b = b.Where(roles)
		}
		if filter.IsActive != nil {
			b = b.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			b = b.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			b = b.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}
	b = orderBy(b, ordering, userOrderings, "created_at DESC")

	users := make([]user.User, 0)
	if err := repo.all(ctx, &users, b, "querying users"); err != nil {
		return nil, err
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	b := repo.db.Builder.Select(userColumns...).From(userTable).Limit(1)

	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		b = b.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	case filter.UsernameOrEmail != "":
		b = b.Where(sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}})
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	if err := repo.get(ctx, &usr, b, user.ErrNotFound, "finding user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	b := repo.db.Builder.Update(userTable).SetMap(repo.values(usr)).Where(sq.Eq{"id": usr.ID})
	if err := repo.update(ctx, b, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	return repo.deleteByID(ctx, userTable, ids, "deleting users")
}
