package chat

// Route names the backend a chat request was dispatched to.
type Route string

const (
	RouteRelay      Route = "relay"
	RouteGenerative Route = "generative"
)

// Request is the body accepted by POST /chat.
type Request struct {
	Message string `json:"message"`
}

// Reply is the body returned by POST /chat.
type Reply struct {
	Reply string `json:"reply"`
}
