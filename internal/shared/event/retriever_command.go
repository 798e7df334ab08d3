package event

// RetrieverCommandDestination tells the device agent to start or stop its
// SMS listener.
const RetrieverCommandDestination string = "retriever_command"

const (
	RetrieverCommandStart = "start"
	RetrieverCommandStop  = "stop"
)

type RetrieverCommandMessage struct {
	Command   string `json:"command"`
	EpisodeID int64  `json:"episode_id,string,omitempty"`
	IssuedAt  int64  `json:"issued_at"`
}
