package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/ledger"
	"github.com/tinoosan/groupledger/internal/permission"
)

// --- Users ---

func (s *Store) UpsertUser(ctx context.Context, u ledger.User) (ledger.User, error) {
	if u.ID == uuid.Nil {
		return ledger.User{}, errs.ErrInvalid
	}
	_, err := s.pool.Exec(ctx, `
        insert into users (id, email, first_name, last_name)
        values ($1, $2, $3, $4)
        on conflict (id) do update
        set email = excluded.email, first_name = excluded.first_name,
            last_name = excluded.last_name, updated_at = now()
    `, u.ID, u.Email, u.FirstName, u.LastName)
	if err != nil {
		return ledger.User{}, mapErr("upsert user", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (ledger.User, error) {
	var u ledger.User
	err := s.pool.QueryRow(ctx, `
        select id, email, first_name, last_name from users where id = $1
    `, userID).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName)
	if err != nil {
		return ledger.User{}, mapErr("get user", err)
	}
	return u, nil
}

// --- Groups ---

const groupColumns = `g.id, g.name, g.description, g.owner_id, g.created_at, g.updated_at`

func scanGroup(row scanner) (ledger.Group, error) {
	var g ledger.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return ledger.Group{}, err
	}
	g.CreatedAt, g.UpdatedAt = g.CreatedAt.UTC(), g.UpdatedAt.UTC()
	return g, nil
}

func (s *Store) CreateGroup(ctx context.Context, g ledger.Group, roles []ledger.Role, owner ledger.Member) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            insert into user_groups (id, name, description, owner_id, created_at, updated_at)
            values ($1, $2, $3, $4, $5, $6)
        `, g.ID, g.Name, g.Description, g.OwnerID, g.CreatedAt, g.UpdatedAt); err != nil {
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
	g, err := scanGroup(s.pool.QueryRow(ctx, `select `+groupColumns+` from user_groups g where g.id = $1`, groupID))
	if err != nil {
		return ledger.Group{}, mapErr("get group", err)
	}
	return g, nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]ledger.Group, error) {
	rows, err := s.pool.Query(ctx, `
        select `+groupColumns+`
        from user_groups g
        where g.owner_id = $1
           or exists (select 1 from group_members m where m.group_id = g.id and m.user_id = $1)
        order by g.created_at, g.id
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
	updated, err := scanGroup(s.pool.QueryRow(ctx, `
        update user_groups g set name = $2, description = $3, updated_at = $4
        where g.id = $1
        returning `+groupColumns, g.ID, g.Name, g.Description, g.UpdatedAt))
	if err != nil {
		return ledger.Group{}, mapErr("update group", err)
	}
	return updated, nil
}

// DeleteGroup removes members and roles explicitly before the group so role references never dangle.
// Accounts and transactions keep existing with group_id set to null by the foreign keys.
func (s *Store) DeleteGroup(ctx context.Context, groupID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `delete from group_members where group_id = $1`, groupID); err != nil {
			return mapErr("delete members", err)
		}
		if _, err := tx.Exec(ctx, `delete from group_roles where group_id = $1`, groupID); err != nil {
			return mapErr("delete roles", err)
		}
		ct, err := tx.Exec(ctx, `delete from user_groups where id = $1`, groupID)
		if err != nil {
			return mapErr("delete group", err)
		}
		if ct.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}

// --- Roles ---

const roleColumns = `r.id, r.group_id, r.name, r.description, r.permissions, r.is_builtin, r.version, r.created_at, r.updated_at`

func scanRole(row scanner) (ledger.Role, error) {
	var r ledger.Role
	var bits int64
	if err := row.Scan(&r.ID, &r.GroupID, &r.Name, &r.Description, &bits, &r.IsBuiltIn, &r.Version, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return ledger.Role{}, err
	}
	r.Permissions = permission.FromBits(bits)
	r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	return r, nil
}

func insertRole(ctx context.Context, tx pgx.Tx, r ledger.Role) error {
	_, err := tx.Exec(ctx, `
        insert into group_roles (id, group_id, name, description, permissions, is_builtin, version, created_at, updated_at)
        values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, r.ID, r.GroupID, r.Name, r.Description, r.Permissions.Bits(), r.IsBuiltIn, r.Version, r.CreatedAt, r.UpdatedAt)
	return mapErr("insert role", err)
}

func (s *Store) CreateRole(ctx context.Context, r ledger.Role) (ledger.Role, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error { return insertRole(ctx, tx, r) })
	if err != nil {
		return ledger.Role{}, err
	}
	return r, nil
}

func (s *Store) GetRole(ctx context.Context, groupID, roleID uuid.UUID) (ledger.Role, error) {
	r, err := scanRole(s.pool.QueryRow(ctx, `
        select `+roleColumns+` from group_roles r where r.id = $1 and r.group_id = $2
    `, roleID, groupID))
	if err != nil {
		return ledger.Role{}, mapErr("get role", err)
	}
	return r, nil
}

func (s *Store) ListRoles(ctx context.Context, groupID uuid.UUID) ([]ledger.Role, error) {
	rows, err := s.pool.Query(ctx, `
        select `+roleColumns+` from group_roles r where r.group_id = $1
        order by r.is_builtin desc, r.created_at, r.name
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
	updated, err := scanRole(s.pool.QueryRow(ctx, `
        update group_roles r
        set name = $4, description = $5, permissions = $6, updated_at = $7, version = r.version + 1
        where r.id = $1 and r.group_id = $2 and r.version = $3 and not r.is_builtin
        returning `+roleColumns,
		r.ID, r.GroupID, r.Version, r.Name, r.Description, r.Permissions.Bits(), r.UpdatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Role{}, s.roleUpdateMiss(ctx, r.GroupID, r.ID)
	}
	if err != nil {
		return ledger.Role{}, mapErr("update role", err)
	}
	return updated, nil
}

// roleUpdateMiss explains why a conditional role update matched no row.
func (s *Store) roleUpdateMiss(ctx context.Context, groupID, roleID uuid.UUID) error {
	current, err := s.GetRole(ctx, groupID, roleID)
	if err != nil {
		return err
	}
	if current.IsBuiltIn {
		return errs.ErrProtectedRole
	}
	return errs.ErrVersionMismatch
}

// DeleteRole locks the role row, checks assignments, then deletes in the same transaction.
func (s *Store) DeleteRole(ctx context.Context, groupID, roleID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var builtin bool
		err := tx.QueryRow(ctx, `
            select is_builtin from group_roles where id = $1 and group_id = $2 for update
        `, roleID, groupID).Scan(&builtin)
		if err != nil {
			return mapErr("lock role", err)
		}
		if builtin {
			return errs.ErrProtectedRole
		}
		var inUse bool
		if err := tx.QueryRow(ctx, `
            select exists (select 1 from group_members where role_id = $1)
        `, roleID).Scan(&inUse); err != nil {
			return mapErr("role in use", err)
		}
		if inUse {
			return errs.ErrInUseByMembers
		}
		if _, err := tx.Exec(ctx, `delete from group_roles where id = $1`, roleID); err != nil {
			if errors.Is(mapErr("", err), errs.ErrNotFound) {
				// A member was assigned concurrently and the foreign key refused the delete.
				return errs.ErrInUseByMembers
			}
			return mapErr("delete role", err)
		}
		return nil
	})
}

// --- Members ---

const memberColumns = `m.id, m.group_id, m.user_id, m.role_id, m.version, m.joined_at, m.updated_at`

func scanMember(row scanner) (ledger.Member, error) {
	var m ledger.Member
	if err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &m.RoleID, &m.Version, &m.JoinedAt, &m.UpdatedAt); err != nil {
		return ledger.Member{}, err
	}
	m.JoinedAt, m.UpdatedAt = m.JoinedAt.UTC(), m.UpdatedAt.UTC()
	return m, nil
}

func insertMember(ctx context.Context, tx pgx.Tx, m ledger.Member) error {
	_, err := tx.Exec(ctx, `
        insert into group_members (id, group_id, user_id, role_id, version, joined_at, updated_at)
        select $1, $2, $3, r.id, $5, $6, $7
        from group_roles r where r.id = $4 and r.group_id = $2
    `, m.ID, m.GroupID, m.UserID, m.RoleID, m.Version, m.JoinedAt, m.UpdatedAt)
	return mapErr("insert member", err)
}

func (s *Store) AddMember(ctx context.Context, m ledger.Member) (ledger.Member, error) {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `select exists (select 1 from user_groups where id = $1)`, m.GroupID).Scan(&exists); err != nil {
			return mapErr("check group", err)
		}
		if !exists {
			return errs.ErrNotFound
		}
		ct, err := tx.Exec(ctx, `
            insert into group_members (id, group_id, user_id, role_id, version, joined_at, updated_at)
            select $1, $2, $3, r.id, $5, $6, $7
            from group_roles r where r.id = $4 and r.group_id = $2
        `, m.ID, m.GroupID, m.UserID, m.RoleID, m.Version, m.JoinedAt, m.UpdatedAt)
		if err != nil {
			return mapErr("insert member", err)
		}
		if ct.RowsAffected() == 0 {
			// role is not part of this group
			return errs.ErrInvalid
		}
		return nil
	})
	if err != nil {
		return ledger.Member{}, err
	}
	return m, nil
}

func (s *Store) GetMember(ctx context.Context, groupID, memberID uuid.UUID) (ledger.Member, error) {
	m, err := scanMember(s.pool.QueryRow(ctx, `
        select `+memberColumns+` from group_members m where m.id = $1 and m.group_id = $2
    `, memberID, groupID))
	if err != nil {
		return ledger.Member{}, mapErr("get member", err)
	}
	return m, nil
}

func (s *Store) FindMember(ctx context.Context, groupID, userID uuid.UUID) (ledger.Member, error) {
	m, err := scanMember(s.pool.QueryRow(ctx, `
        select `+memberColumns+` from group_members m where m.group_id = $1 and m.user_id = $2
    `, groupID, userID))
	if err != nil {
		return ledger.Member{}, mapErr("find member", err)
	}
	return m, nil
}

func (s *Store) ListMembers(ctx context.Context, groupID uuid.UUID) ([]ledger.MemberView, error) {
	rows, err := s.pool.Query(ctx, `
        select `+memberColumns+`,
               coalesce(u.email, ''), coalesce(u.first_name, ''), coalesce(u.last_name, ''),
               `+roleColumns+`
        from group_members m
        join group_roles r on r.id = m.role_id
        left join users u on u.id = m.user_id
        where m.group_id = $1
        order by m.joined_at, m.id
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
			&v.ID, &v.GroupID, &v.UserID, &v.RoleID, &v.Version, &v.JoinedAt, &v.UpdatedAt,
			&v.User.Email, &v.User.FirstName, &v.User.LastName,
			&v.Role.ID, &v.Role.GroupID, &v.Role.Name, &v.Role.Description, &bits, &v.Role.IsBuiltIn, &v.Role.Version, &v.Role.CreatedAt, &v.Role.UpdatedAt,
		); err != nil {
			return nil, mapErr("scan member", err)
		}
		v.User.ID = v.UserID
		v.Role.Permissions = permission.FromBits(bits)
		v.JoinedAt, v.UpdatedAt = v.JoinedAt.UTC(), v.UpdatedAt.UTC()
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) UpdateMember(ctx context.Context, m ledger.Member) (ledger.Member, error) {
	updated, err := scanMember(s.pool.QueryRow(ctx, `
        update group_members m
        set role_id = r.id, updated_at = $5, version = m.version + 1
        from group_roles r
        where m.id = $1 and m.group_id = $2 and m.version = $3 and r.id = $4 and r.group_id = m.group_id
        returning `+memberColumns,
		m.ID, m.GroupID, m.Version, m.RoleID, m.UpdatedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := s.GetMember(ctx, m.GroupID, m.ID); gerr != nil {
			return ledger.Member{}, gerr
		}
		if _, rerr := s.GetRole(ctx, m.GroupID, m.RoleID); rerr != nil {
			return ledger.Member{}, errs.ErrInvalid
		}
		return ledger.Member{}, errs.ErrVersionMismatch
	}
	if err != nil {
		return ledger.Member{}, mapErr("update member", err)
	}
	return updated, nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID, memberID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from group_members where id = $1 and group_id = $2`, memberID, groupID)
	if err != nil {
		return mapErr("remove member", err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
