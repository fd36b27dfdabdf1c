package db

const (
	ConstLayoutDateTime = `2006-01-02 15:04`
	ConstLayoutDate     = `2006-01-02`
	ConstLayoutTime     = `15:04`
)

var ConstRoles = struct {
	Admin   int
	Cashier int
	Teacher int
	Student int
	API     int
}{
	Admin:   1,
	Cashier: 2,
	Teacher: 3,
	Student: 4,
	API:     5,
}
