package bot

// Event is an inbound webhook event addressed to one user
type Event interface {
	User() string
	Token() string
}

// TextEvent is a text message sent by a user
type TextEvent struct {
	UserID     string
	ReplyToken string
	Text       string
}

// PostbackEvent is a button press carrying action data and, for pickers, params
type PostbackEvent struct {
	UserID     string
	ReplyToken string
	Data       string
	Params     map[string]string
}

func (e TextEvent) User() string      { return e.UserID }
func (e TextEvent) Token() string     { return e.ReplyToken }
func (e PostbackEvent) User() string  { return e.UserID }
func (e PostbackEvent) Token() string { return e.ReplyToken }
