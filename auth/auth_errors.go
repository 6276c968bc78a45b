package auth

import "fmt"

// MessageKind classifies the user-facing message of a transition.
type MessageKind string

const (
	KindInfo    MessageKind = "info"
	KindSuccess MessageKind = "success"
	KindError   MessageKind = "error"
)

// User-facing messages.
const (
	MsgLoginFailed      = "Invalid username or password!"
	MsgFieldsRequired   = "Username and password are required!"
	MsgPasswordMismatch = "Passwords do not match!"
	MsgUsernameTaken    = "Username already exists! Please choose a different one."
	MsgLoggedOut        = "Logged out successfully!"
	MsgNoActiveSession  = "No active session to logout"
)

func msgWelcome(username string) string {
	return fmt.Sprintf("Welcome %s! Login successful.", username)
}

func msgRegistered(username string) string {
	return fmt.Sprintf("User '%s' registered successfully! You can now login.", username)
}

func msgPasswordTooShort(min int) string {
	return fmt.Sprintf("Password must be at least %d characters long!", min)
}

func msgPasswordTooLong(max int) string {
	return fmt.Sprintf("Password must be at most %d bytes long!", max)
}

func msgUsernameTooLong(max int) string {
	return fmt.Sprintf("Username must be at most %d characters long!", max)
}
