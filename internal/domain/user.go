package domain

// User is the minimal view of an account the messaging core needs. Accounts
// are owned by the user service; this type only supports existence checks
// and display.
type User struct {
	ID       int64
	Username string
}
