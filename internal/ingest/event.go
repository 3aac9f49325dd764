package ingest

const (
	EventTypeUnknown = iota
	EventTypeMessage
	EventTypeJoin
)

// Event is the normalized form of a platform event. The session layer fills
// exactly the fields the detectors need; the platform SDK's objects never
// cross into the engine.
type Event struct {
	EventType uint8
	// Exempt marks actors the detectors must skip (administrators and
	// whitelisted users). Counters still see exempt events.
	Exempt           bool
	MentionsEveryone bool
	ContainsInvite   bool
	MentionCount     uint16
	GuildID          uint64
	UserID           uint64
	ChannelID        uint64
	MessageID        uint64
	// Timestamp is unix nanoseconds at ingestion.
	Timestamp int64
}

// NewMessageEvent builds a message-sent event.
func NewMessageEvent(guildID, userID, channelID, messageID uint64, ts int64) Event {
	return Event{
		EventType: EventTypeMessage,
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: channelID,
		MessageID: messageID,
		Timestamp: ts,
	}
}

// NewJoinEvent builds a member-joined event.
func NewJoinEvent(guildID, userID uint64, ts int64) Event {
	return Event{
		EventType: EventTypeJoin,
		GuildID:   guildID,
		UserID:    userID,
		Timestamp: ts,
	}
}
