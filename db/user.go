package db

import (
	"database/sql"
	"encoding/json"
	"strings"

	"bitbucket.org/colegioandes/backend/models"
	"github.com/jmoiron/sqlx"
)

type UserStorage interface {
	GetUserByID(userID int) (*models.User, error)
	GetUsers(*models.GetUsersOpts) (*models.UsersStruct, error)
}

const (
	getUserByID = `
	SELECT
		user.id,
		user.firstname,
		user.lastname,
		user.email,
		user.created,
		user.updated,
		user.active,
		COALESCE(CONCAT('[',GROUP_CONCAT(JSON_OBJECT('id', role.id, 'name', role.name)),']'), '[]')
	FROM user
	INNER JOIN pivot_role_user ON (pivot_role_user.user_id = user.id)
	INNER JOIN role ON (role.id = pivot_role_user.role_id AND role.active = 1)
	WHERE user.id = :user_id
	AND user.active = 1
	GROUP BY user.id
	`

	getUsers = `
	SELECT
		user.id,
		user.firstname,
		user.lastname,
		user.email,
		user.created,
		user.updated,
		user.active,
		COALESCE(CONCAT('[',GROUP_CONCAT(JSON_OBJECT('id', role.id, 'name', role.name)),']'), '[]')
	FROM user
	INNER JOIN pivot_role_user ON (pivot_role_user.user_id = user.id)
	INNER JOIN role ON (role.id = pivot_role_user.role_id AND role.active = 1)
	WHERE user.active = 1
		#FILTERS#
	GROUP BY user.id
	ORDER BY user.id ASC
	LIMIT :limit_to OFFSET :limit_from
	`

	countUsers = `
	SELECT
		count(DISTINCT user.id)
	FROM user
	INNER JOIN pivot_role_user ON (pivot_role_user.user_id = user.id)
	INNER JOIN role ON (role.id = pivot_role_user.role_id AND role.active = 1)
	WHERE user.active = 1
		#FILTERS#
	`
)

func (db *DB) GetUserByID(userID int) (*models.User, error) {
	stmt, err := db.PrepareNamed(getUserByID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"user_id": userID,
	}

	row := stmt.QueryRow(args)

	var user models.User
	var rolesBytes []byte

	if err := row.Scan(
		&user.ID,
		&user.Firstname,
		&user.Lastname,
		&user.Email,
		&user.Created,
		&user.Updated,
		&user.Active,
		&rolesBytes,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	var roles []models.Role
	if err := json.Unmarshal(rolesBytes, &roles); err != nil {
		return nil, err
	}
	user.Roles = roles

	return &user, nil
}

func (db *DB) GetUsers(opts *models.GetUsersOpts) (*models.UsersStruct, error) {
	var filters string
	args := make(map[string]interface{})
	if opts.CreatedFrom != "" {
		filters += " AND DATE(user.created) >= :created_from "
		args["created_from"] = opts.CreatedFrom
	}
	if opts.CreatedTo != "" {
		filters += " AND DATE(user.created) <= :created_to "
		args["created_to"] = opts.CreatedTo
	}
	if len(opts.UserIDs) != 0 {
		filters += " AND user.id IN (:user_ids) "
		args["user_ids"] = opts.UserIDs
	}
	if len(opts.RoleIDs) != 0 {
		filters += " AND pivot_role_user.role_id IN (:role_ids) "
		args["role_ids"] = opts.RoleIDs
	}
	if len(opts.Emails) != 0 {
		filters += " AND user.email IN (:emails) "
		args["emails"] = opts.Emails
	}
	if opts.LimitTo == 0 {
		opts.LimitTo = 10
	}
	args["limit_to"] = opts.LimitTo
	args["limit_from"] = opts.LimitFrom

	total, err := db.countUsers(filters, args)
	if err != nil {
		return nil, err
	}

	query := strings.ReplaceAll(getUsers, "#FILTERS#", filters)

	query, nargs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, err
	}

	query, nargs, err = sqlx.In(query, nargs...)
	if err != nil {
		return nil, err
	}

	query = db.Rebind(query)

	rows, err := db.Query(query, nargs...)
	if err != nil {
		return nil, err
	}

	users := models.UsersStruct{
		Total: total,
	}
	for rows.Next() {
		var user models.User
		var rolesBytes []byte
		if err := rows.Scan(
			&user.ID,
			&user.Firstname,
			&user.Lastname,
			&user.Email,
			&user.Created,
			&user.Updated,
			&user.Active,
			&rolesBytes,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(rolesBytes, &user.Roles); err != nil {
			return nil, err
		}

		users.Users = append(users.Users, user)
	}

	return &users, nil
}

func (db *DB) countUsers(filters string, args map[string]interface{}) (int, error) {
	query := strings.ReplaceAll(countUsers, "#FILTERS#", filters)

	query, nargs, err := sqlx.Named(query, args)
	if err != nil {
		return 0, err
	}

	query, nargs, err = sqlx.In(query, nargs...)
	if err != nil {
		return 0, err
	}

	query = db.Rebind(query)

	row := db.QueryRow(query, nargs...)
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}
