package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
)

// Users

func (s *Store) UpsertUser(ctx context.Context, u ledger.User) (ledger.User, error) {
	if u.ID == uuid.Nil {
		return ledger.User{}, errs.ErrInvalid
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO users (id, email, first_name, last_name) VALUES (?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            email = excluded.email, first_name = excluded.first_name, last_name = excluded.last_name
    `, u.ID, u.Email, u.FirstName, u.LastName)
	if err != nil {
		return ledger.User{}, mapErr("upsert user", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (ledger.User, error) {
	var u ledger.User
	err := s.db.QueryRowContext(ctx, `SELECT id, email, first_name, last_name FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName)
	if err != nil {
		return ledger.User{}, mapErr("get user", err)
	}
	return u, nil
}

// Groups

const groupColumns = `g.id, g.name, g.description, g.owner_id, g.created_at, g.updated_at`

func scanGroup(row scanner) (ledger.Group, error) {
	var g ledger.Group
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.OwnerID, at(&g.CreatedAt), at(&g.UpdatedAt))
	return g, err
}

func (s *Store) CreateGroup(ctx context.Context, g ledger.Group, roles []ledger.Role, owner ledger.Member) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO user_groups (id, name, description, owner_id, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?)
        `, g.ID, g.Name, g.Description, g.OwnerID, ts(g.CreatedAt), ts(g.UpdatedAt)); err != nil {
			return mapErr("insert group", err)
		}
		for _, r := range roles {
			if err := insertRole(ctx, tx, r); err != nil {
				return err
			}
		}
		return insertMember(ctx, tx, owner)
	})
}

func (s *Store) GetGroup(ctx context.Context, groupID uuid.UUID) (ledger.Group, error) {
	g, err := scanGroup(s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM user_groups g WHERE g.id = ?`, groupID))
	if err != nil {
		return ledger.Group{}, mapErr("get group", err)
	}
	return g, nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]ledger.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+groupColumns+` FROM user_groups g
        WHERE g.owner_id = ?1
           OR EXISTS (SELECT 1 FROM group_members m WHERE m.group_id = g.id AND m.user_id = ?1)
        ORDER BY g.created_at, g.id
    `, userID)
	if err != nil {
		return nil, mapErr("list groups", err)
	}
	defer rows.Close()
	out := make([]ledger.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, mapErr("scan group", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGroup(ctx context.Context, g ledger.Group) (ledger.Group, error) {
	var out ledger.Group
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
            UPDATE user_groups SET name = ?, description = ?, updated_at = ? WHERE id = ?
        `, g.Name, g.Description, ts(g.UpdatedAt), g.ID)
		if err != nil {
			return mapErr("update group", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.ErrNotFound
		}
		out, err = scanGroup(tx.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM user_groups g WHERE g.id = ?`, g.ID))
		return mapErr("reload group", err)
	})
	if err != nil {
		return ledger.Group{}, err
	}
	return out, nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID uuid.UUID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM group_members WHERE group_id = ?`,
			`DELETE FROM group_roles WHERE group_id = ?`,
			`UPDATE accounts SET group_id = NULL WHERE group_id = ?`,
			`UPDATE transactions SET group_id = NULL WHERE group_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, groupID); err != nil {
				return mapErr("delete group", err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM user_groups WHERE id = ?`, groupID)
		if err != nil {
			return mapErr("delete group", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// Roles

const roleColumns = `r.id, r.group_id, r.name, r.description, r.permissions, r.is_builtin, r.version, r.created_at, r.updated_at`

func scanRole(row scanner) (ledger.Role, error) {
	var r ledger.Role
	var bits int64
	err := row.Scan(&r.ID, &r.GroupID, &r.Name, &r.Description, &bits, &r.IsBuiltIn, &r.Version, at(&r.CreatedAt), at(&r.UpdatedAt))
	r.Permissions = permission.FromBits(bits)
	return r, err
}

func insertRole(ctx context.Context, q querier, r ledger.Role) error {
	_, err := q.ExecContext(ctx, `
        INSERT INTO group_roles (id, group_id, name, description, permissions, is_builtin, version, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, r.ID, r.GroupID, r.Name, r.Description, r.Permissions.Bits(), r.IsBuiltIn, r.Version, ts(r.CreatedAt), ts(r.UpdatedAt))
	return mapErr("insert role", err)
}

func (s *Store) CreateRole(ctx context.Context, r ledger.Role) (ledger.Role, error) {
	if err := insertRole(ctx, s.db, r); err != nil {
		return ledger.Role{}, err
	}
	return r, nil
}

func getRole(ctx context.Context, q querier, groupID, roleID uuid.UUID) (ledger.Role, error) {
	r, err := scanRole(q.QueryRowContext(ctx, `
        SELECT `+roleColumns+` FROM group_roles r WHERE r.id = ? AND r.group_id = ?
    `, roleID, groupID))
	if err != nil {
		return ledger.Role{}, mapErr("get role", err)
	}
	return r, nil
}

func (s *Store) GetRole(ctx context.Context, groupID, roleID uuid.UUID) (ledger.Role, error) {
	return getRole(ctx, s.db, groupID, roleID)
}

func (s *Store) ListRoles(ctx context.Context, groupID uuid.UUID) ([]ledger.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+roleColumns+` FROM group_roles r WHERE r.group_id = ?
        ORDER BY r.is_builtin DESC, r.created_at, r.name
    `, groupID)
	if err != nil {
		return nil, mapErr("list roles", err)
	}
	defer rows.Close()
	out := make([]ledger.Role, 0)
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, mapErr("scan role", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRole(ctx context.Context, r ledger.Role) (ledger.Role, error) {
	var out ledger.Role
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getRole(ctx, tx, r.GroupID, r.ID)
		if err != nil {
			return err
		}
		if current.IsBuiltIn {
			return errs.ErrProtectedRole
		}
		if current.Version != r.Version {
			return errs.ErrVersionMismatch
		}
		if _, err := tx.ExecContext(ctx, `
            UPDATE group_roles SET name = ?, description = ?, permissions = ?, updated_at = ?, version = version + 1
            WHERE id = ?
        `, r.Name, r.Description, r.Permissions.Bits(), ts(r.UpdatedAt), r.ID); err != nil {
			return mapErr("update role", err)
		}
		out, err = getRole(ctx, tx, r.GroupID, r.ID)
		return err
	})
	if err != nil {
		return ledger.Role{}, err
	}
	return out, nil
}

func (s *Store) DeleteRole(ctx context.Context, groupID, roleID uuid.UUID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		r, err := getRole(ctx, tx, groupID, roleID)
		if err != nil {
			return err
		}
		if r.IsBuiltIn {
			return errs.ErrProtectedRole
		}
		var inUse bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM group_members WHERE role_id = ?)`, roleID).Scan(&inUse); err != nil {
			return mapErr("role in use", err)
		}
		if inUse {
			return errs.ErrInUseByMembers
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM group_roles WHERE id = ?`, roleID)
		return mapErr("delete role", err)
	})
}

// Members

const memberColumns = `m.id, m.group_id, m.user_id, m.role_id, m.version, m.joined_at, m.updated_at`

func scanMember(row scanner) (ledger.Member, error) {
	var m ledger.Member
	err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &m.RoleID, &m.Version, at(&m.JoinedAt), at(&m.UpdatedAt))
	return m, err
}

func insertMember(ctx context.Context, q querier, m ledger.Member) error {
	_, err := q.ExecContext(ctx, `
        INSERT INTO group_members (id, group_id, user_id, role_id, version, joined_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, m.ID, m.GroupID, m.UserID, m.RoleID, m.Version, ts(m.JoinedAt), ts(m.UpdatedAt))
	return mapErr("insert member", err)
}

func (s *Store) AddMember(ctx context.Context, m ledger.Member) (ledger.Member, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM user_groups WHERE id = ?)`, m.GroupID).Scan(&exists); err != nil {
			return mapErr("check group", err)
		}
		if !exists {
			return errs.ErrNotFound
		}
		if _, err := getRole(ctx, tx, m.GroupID, m.RoleID); err != nil {
			return errs.ErrInvalid
		}
		return insertMember(ctx, tx, m)
	})
	if err != nil {
		return ledger.Member{}, err
	}
	return m, nil
}

func getMember(ctx context.Context, q querier, groupID, memberID uuid.UUID) (ledger.Member, error) {
	m, err := scanMember(q.QueryRowContext(ctx, `
        SELECT `+memberColumns+` FROM group_members m WHERE m.id = ? AND m.group_id = ?
    `, memberID, groupID))
	if err != nil {
		return ledger.Member{}, mapErr("get member", err)
	}
	return m, nil
}

func (s *Store) GetMember(ctx context.Context, groupID, memberID uuid.UUID) (ledger.Member, error) {
	return getMember(ctx, s.db, groupID, memberID)
}

func (s *Store) FindMember(ctx context.Context, groupID, userID uuid.UUID) (ledger.Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx, `
        SELECT `+memberColumns+` FROM group_members m WHERE m.group_id = ? AND m.user_id = ?
    `, groupID, userID))
	if err != nil {
		return ledger.Member{}, mapErr("find member", err)
	}
	return m, nil
}

func (s *Store) ListMembers(ctx context.Context, groupID uuid.UUID) ([]ledger.MemberView, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+memberColumns+`,
               coalesce(u.email, ''), coalesce(u.first_name, ''), coalesce(u.last_name, ''),
               `+roleColumns+`
        FROM group_members m
        JOIN group_roles r ON r.id = m.role_id
        LEFT JOIN users u ON u.id = m.user_id
        WHERE m.group_id = ?
        ORDER BY m.joined_at, m.id
    `, groupID)
	if err != nil {
		return nil, mapErr("list members", err)
	}
	defer rows.Close()
	out := make([]ledger.MemberView, 0)
	for rows.Next() {
		var v ledger.MemberView
		var bits int64
		if err := rows.Scan(
			&v.ID, &v.GroupID, &v.UserID, &v.RoleID, &v.Version, at(&v.JoinedAt), at(&v.UpdatedAt),
			&v.User.Email, &v.User.FirstName, &v.User.LastName,
			&v.Role.ID, &v.Role.GroupID, &v.Role.Name, &v.Role.Description, &bits, &v.Role.IsBuiltIn, &v.Role.Version,
			at(&v.Role.CreatedAt), at(&v.Role.UpdatedAt),
		); err != nil {
			return nil, mapErr("scan member", err)
		}
		v.User.ID = v.UserID
		v.Role.Permissions = permission.FromBits(bits)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) UpdateMember(ctx context.Context, m ledger.Member) (ledger.Member, error) {
	var out ledger.Member
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getMember(ctx, tx, m.GroupID, m.ID)
		if err != nil {
			return err
		}
		if current.Version != m.Version {
			return errs.ErrVersionMismatch
		}
		if _, err := getRole(ctx, tx, m.GroupID, m.RoleID); err != nil {
			return errs.ErrInvalid
		}
		if _, err := tx.ExecContext(ctx, `
            UPDATE group_members SET role_id = ?, updated_at = ?, version = version + 1 WHERE id = ?
        `, m.RoleID, ts(m.UpdatedAt), m.ID); err != nil {
			return mapErr("update member", err)
		}
		out, err = getMember(ctx, tx, m.GroupID, m.ID)
		return err
	})
	if err != nil {
		return ledger.Member{}, err
	}
	return out, nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID, memberID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM group_members WHERE id = ? AND group_id = ?`, memberID, groupID)
	if err != nil {
		return mapErr("remove member", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
