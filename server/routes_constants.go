package server

// Route path constants
const (
	RouteIndex  = "/"
	RouteHealth = "/healthz"
)
