package models

import (
	"time"

	"github.com/thedevsaddam/govalidator"
)

type GetUsersOpts struct {
	CreatedFrom string   `schema:"created_from"`
	CreatedTo   string   `schema:"created_to"`
	UserIDs     []int    `schema:"user_ids"`
	RoleIDs     []int    `schema:"role_ids"`
	Emails      []string `schema:"emails"`
	LimitFrom   int      `schema:"limit_from"`
	LimitTo     int      `schema:"limit_to"`
}

var GetUsersRules = govalidator.MapData{
	"created_from": []string{"date_ISO8601"},
	"created_to":   []string{"date_ISO8601"},
	"user_ids":     []string{"array_int"},
	"role_ids":     []string{"array_int"},
	"emails":       []string{"array_string"},
	"limit_from":   []string{"numeric"},
	"limit_to":     []string{"numeric"},
}

type UsersStruct struct {
	Total int    `json:"total"`
	Users []User `json:"users"`
}

type InfoUser struct {
	ID        int
	IsAdmin   bool
	IsCashier bool
	IsTeacher bool
	IsStudent bool
	IsAPI     bool
	Read      bool
	Roles     []int
	Email     string
}

type User struct {
	ID        int    `json:"id,omitempty"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"-"`

	Created time.Time `json:"created,omitempty"`
	Updated time.Time `json:"updated,omitempty"`
	Active  bool      `json:"active"`

	Token string `json:"token,omitempty"`
	Roles []Role `json:"role,omitempty"`
}

func (user *User) HasRole(roleID int) bool {
	for _, role := range user.Roles {
		if role.ID == roleID {
			return true
		}
	}
	return false
}

type Role struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}
