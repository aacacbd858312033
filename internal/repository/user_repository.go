package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/motosaga/moto-saga/internal/model"
	"github.com/motosaga/moto-saga/internal/utils"
)

// UserRepo provides access to the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, password_hash, name, role, bio, profile_image, bike_info, club_info, created_at, updated_at`

// Create inserts a new user with a generated UUID and a bcrypt hash of the
// password, and returns the stored record. Emails are normalized to lower
// case; a duplicate email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, name string, role model.Role, bikeInfo, clubInfo json.RawMessage, bio string, cost int) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		Bio:          bio,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	// Only riders carry bike info, only clubs carry club info.
	if role == model.RoleRider {
		u.BikeInfo = bikeInfo
	}
	if role == model.RoleClub {
		u.ClubInfo = clubInfo
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, bio, profile_image, bike_info, club_info, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role), u.Bio, u.ProfileImage,
		nullJSON(u.BikeInfo), nullJSON(u.ClubInfo), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
}

// GetByIDs fetches many users in a single query and returns them keyed by
// id. Missing ids are simply absent from the map. Used for the batched
// read-time joins in event and payment listings.
func (r *UserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

// ListAll returns every user ordered by signup time descending. Admin use.
func (r *UserRepo) ListAll(ctx context.Context) ([]*model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]*model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateProfile applies the allow-listed profile fields to a user and
// returns the refreshed record. Nil pointers leave the column untouched.
// Email, role and credentials cannot be changed here.
func (r *UserRepo) UpdateProfile(ctx context.Context, id string, name, bio, profileImage *string, bikeInfo, clubInfo json.RawMessage) (*model.User, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}
	if name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *name)
	}
	if bio != nil {
		sets = append(sets, "bio = ?")
		args = append(args, *bio)
	}
	if profileImage != nil {
		sets = append(sets, "profile_image = ?")
		args = append(args, *profileImage)
	}
	if bikeInfo != nil {
		sets = append(sets, "bike_info = ?")
		args = append(args, nullJSON(bikeInfo))
	}
	if clubInfo != nil {
		sets = append(sets, "club_info = ?")
		args = append(args, nullJSON(clubInfo))
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is also zero for a no-op update, so confirm existence.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// CountByRole groups users by role. Admin stats.
func (r *UserRepo) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.Role]int)
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		out[model.Role(role)] = n
	}
	return out, rows.Err()
}

// CountSince returns the number of users created at or after the cutoff.
func (r *UserRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE created_at >= ?`, since).Scan(&n)
	return n, err
}

// Count returns the total number of users.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var role string
	var bike, club sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.Bio,
		&u.ProfileImage, &bike, &club, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	if bike.Valid {
		u.BikeInfo = json.RawMessage(bike.String)
	}
	if club.Valid {
		u.ClubInfo = json.RawMessage(club.String)
	}
	return &u, nil
}

// nullJSON maps an empty raw message to SQL NULL so the JSON columns stay
// valid.
func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
