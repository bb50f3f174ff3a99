package models

// Ownable is implemented by every entity scoped to a single user.
type Ownable interface {
	GetUserID() uint
	SetUserID(uint)
}
