package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"reliefapp/internal/config"
	"reliefapp/internal/models"
	"reliefapp/internal/observability"
	contextutils "reliefapp/internal/utils"
)

// UserServiceInterface defines the interface for user and organization operations
type UserServiceInterface interface {
	CreateOrganization(ctx context.Context, name string) (*models.Organization, error)
	GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error)
	GetOrganization(ctx context.Context, orgID int) (*models.Organization, error)
	CreateUserWithPassword(ctx context.Context, orgID int, username, password, displayName, email string) (*models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsersByOrganization(ctx context.Context, orgID int) ([]models.User, error)
	UpdateLastActive(ctx context.Context, userID int) error
	UpdateUserPassword(ctx context.Context, userID int, newPassword string) error
	GetUserRoles(ctx context.Context, userID int) ([]models.Role, error)
	AssignRoleByName(ctx context.Context, userID int, roleName string) error
	HasRole(ctx context.Context, userID int, roleName string) (bool, error)
	EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) error
}

// UserService handles users, organizations, and role membership
type UserService struct {
	db     *sql.DB
	config *config.Config
	logger *observability.Logger
}

// NewUserServiceWithLogger creates a new UserService instance
func NewUserServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	if db == nil {
		panic("UserService requires a valid database connection")
	}
	return &UserService{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

const userColumns = `id, username, display_name, email, password_hash, organization_id, last_active, created_at, updated_at`

func scanUser(scanner interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	err := scanner.Scan(
		&user.ID, &user.Username, &user.DisplayName, &user.Email, &user.PasswordHash,
		&user.OrganizationID, &user.LastActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateOrganization creates a new organization
func (s *UserService) CreateOrganization(ctx context.Context, name string) (result0 *models.Organization, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "CreateOrganization")
	defer observability.FinishSpan(span, &err)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, contextutils.ErrMissingRequired
	}

	org := &models.Organization{Name: name}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO organizations (name) VALUES ($1)
		RETURNING id, created_at, updated_at`, name,
	).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to create organization")
	}
	return org, nil
}

// GetOrganizationByName returns an organization by exact name
func (s *UserService) GetOrganizationByName(ctx context.Context, name string) (result0 *models.Organization, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetOrganizationByName")
	defer observability.FinishSpan(span, &err)

	var org models.Organization
	err = s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM organizations WHERE name = $1", name,
	).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrRecordNotFound
		}
		return nil, contextutils.WrapErrorf(err, "failed to get organization")
	}
	return &org, nil
}

// GetOrganization returns an organization by id
func (s *UserService) GetOrganization(ctx context.Context, orgID int) (result0 *models.Organization, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetOrganization",
		observability.AttributeOrganizationID(orgID),
	)
	defer observability.FinishSpan(span, &err)

	var org models.Organization
	err = s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM organizations WHERE id = $1", orgID,
	).Scan(&org.ID, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrRecordNotFound
		}
		return nil, contextutils.WrapErrorf(err, "failed to get organization")
	}
	return &org, nil
}

// CreateUserWithPassword creates a user inside an organization with a bcrypt-hashed password
func (s *UserService) CreateUserWithPassword(ctx context.Context, orgID int, username, password, displayName, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "CreateUserWithPassword",
		observability.AttributeOrganizationID(orgID),
	)
	defer observability.FinishSpan(span, &err)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, contextutils.ErrMissingRequired
	}
	if email != "" && !contextutils.IsValidEmail(email) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid email %q", email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to hash password")
	}

	user := &models.User{
		Username:       username,
		OrganizationID: orgID,
		DisplayName:    sql.NullString{String: displayName, Valid: displayName != ""},
		Email:          sql.NullString{String: email, Valid: email != ""},
		PasswordHash:   sql.NullString{String: string(hashedPassword), Valid: true},
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, display_name, email, password_hash, organization_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		username, user.DisplayName, user.Email, user.PasswordHash, orgID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to create user")
	}

	s.logger.Info(ctx, "User created", map[string]interface{}{
		"user_id":         user.ID,
		"username":        username,
		"organization_id": orgID,
	})
	return user, nil
}

// AuthenticateUser verifies credentials and returns the user
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "AuthenticateUser")
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return nil, contextutils.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.PasswordHash.Valid {
		return nil, contextutils.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)); err != nil {
		return nil, contextutils.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID returns a user by id, with roles populated
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByID",
		observability.AttributeUserID(id),
	)
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrRecordNotFound
		}
		return nil, contextutils.WrapErrorf(err, "failed to get user")
	}
	user.Roles, err = s.GetUserRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByUsername returns a user by username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByUsername")
	defer observability.FinishSpan(span, &err)

	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextutils.ErrRecordNotFound
		}
		return nil, contextutils.WrapErrorf(err, "failed to get user by username")
	}
	return user, nil
}

// GetUsersByOrganization lists an organization's users
func (s *UserService) GetUsersByOrganization(ctx context.Context, orgID int) (result0 []models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUsersByOrganization",
		observability.AttributeOrganizationID(orgID),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE organization_id = $1 ORDER BY username ASC", orgID)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to list users")
	}
	defer func() { _ = rows.Close() }()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to scan user")
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateLastActive stamps the user's last activity time
func (s *UserService) UpdateLastActive(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdateLastActive",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx,
		"UPDATE users SET last_active = NOW(), updated_at = NOW() WHERE id = $1", userID)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to update last active")
	}
	return nil
}

// UpdateUserPassword replaces the user's password hash
func (s *UserService) UpdateUserPassword(ctx context.Context, userID int, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdateUserPassword",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	if newPassword == "" {
		return contextutils.ErrMissingRequired
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to hash password")
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2",
		string(hashedPassword), userID)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to update password")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to check password update")
	}
	if affected == 0 {
		return contextutils.ErrRecordNotFound
	}
	return nil
}

// GetUserRoles returns the user's roles
func (s *UserService) GetUserRoles(ctx context.Context, userID int) (result0 []models.Role, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserRoles",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name ASC`, userID)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to get user roles")
	}
	defer func() { _ = rows.Close() }()

	var roles []models.Role
	for rows.Next() {
		var role models.Role
		var description sql.NullString
		if err := rows.Scan(&role.ID, &role.Name, &description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, contextutils.WrapErrorf(err, "failed to scan role")
		}
		role.Description = description.String
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AssignRoleByName grants a role to a user, idempotently
func (s *UserService) AssignRoleByName(ctx context.Context, userID int, roleName string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "AssignRoleByName",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	var roleID int
	err = s.db.QueryRowContext(ctx, "SELECT id FROM roles WHERE name = $1", roleName).Scan(&roleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "role %q does not exist", roleName)
		}
		return contextutils.WrapErrorf(err, "failed to look up role")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to assign role")
	}
	return nil
}

// HasRole reports whether the user holds the named role
func (s *UserService) HasRole(ctx context.Context, userID int, roleName string) (result0 bool, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "HasRole",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	var exists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = $1 AND r.name = $2
		)`, userID, roleName).Scan(&exists)
	if err != nil {
		return false, contextutils.WrapErrorf(err, "failed to check role")
	}
	return exists, nil
}

// EnsureAdminUserExists bootstraps the configured admin account inside a
// default organization, updating the password if it drifted from config
func (s *UserService) EnsureAdminUserExists(ctx context.Context, adminUsername, adminPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "EnsureAdminUserExists")
	defer observability.FinishSpan(span, &err)

	if adminUsername == "" || adminPassword == "" {
		return contextutils.ErrMissingRequired
	}

	existing, err := s.GetUserByUsername(ctx, adminUsername)
	if err != nil && !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
		return err
	}

	if existing != nil {
		if !existing.PasswordHash.Valid ||
			bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash.String), []byte(adminPassword)) != nil {
			if err := s.UpdateUserPassword(ctx, existing.ID, adminPassword); err != nil {
				return err
			}
		}
		return s.AssignRoleByName(ctx, existing.ID, "admin")
	}

	org, err := s.GetOrganizationByName(ctx, "Default")
	if err != nil {
		if !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			return err
		}
		org, err = s.CreateOrganization(ctx, "Default")
		if err != nil {
			return err
		}
	}

	admin, err := s.CreateUserWithPassword(ctx, org.ID, adminUsername, adminPassword, "Administrator", "")
	if err != nil {
		return err
	}
	return s.AssignRoleByName(ctx, admin.ID, "admin")
}
