package relay

const activityTypeMessage = "message"

// ChannelAccount identifies a conversation participant.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Activity is one unit of conversation exchange as the relay service represents it.
type Activity struct {
	Type        string         `json:"type"`
	ID          string         `json:"id,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	From        ChannelAccount `json:"from"`
	Text        string         `json:"text,omitempty"`
	ReplyToID   string         `json:"replyToId,omitempty"`
	ChannelData map[string]any `json:"channelData,omitempty"`
}

// ActivitySet is returned by the activity listing endpoint and pushed over the stream.
type ActivitySet struct {
	Activities []Activity `json:"activities"`
	Watermark  string     `json:"watermark,omitempty"`
}

type conversationResponse struct {
	ConversationID string `json:"conversationId"`
	Token          string `json:"token,omitempty"`
	ExpiresIn      int    `json:"expires_in,omitempty"`
	StreamURL      string `json:"streamUrl,omitempty"`
}

type resourceResponse struct {
	ID string `json:"id"`
}
