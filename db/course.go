package db

import (
	"database/sql"

	"bitbucket.org/colegioandes/backend/models"
)

type CourseStorage interface {
	GetCourseByID(courseID int) (*models.Course, error)
}

const (
	getCourseByID = `
	SELECT
		course.id,
		course.name,
		course.price,
		course.capacity,
		course.start_date,
		course.end_date,
		course.created,
		course.updated,
		course.active,
		(
			SELECT
				COUNT(enrollment.id)
			FROM
				enrollment
			WHERE
				enrollment.course_id = course.id AND
				enrollment.status != 'cancelled'
		)
	FROM
		course
	WHERE
		course.id = :course_id AND
		course.active = true
	`
)

func (db *DB) GetCourseByID(courseID int) (*models.Course, error) {
	stmt, err := db.PrepareNamed(getCourseByID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"course_id": courseID,
	}

	var course models.Course

	row := stmt.QueryRow(args)
	if err := row.Scan(
		&course.ID,
		&course.Name,
		&course.Price,
		&course.Capacity,
		&course.StartDate,
		&course.EndDate,
		&course.Created,
		&course.Updated,
		&course.Active,
		&course.Enrolled,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return &course, nil
}
