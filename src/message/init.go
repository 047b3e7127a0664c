package message

// Type tags of the handshake payloads, shared by every node kind.
const (
	TypeInit   = "init"
	TypeInitOk = "init_ok"
)

// Init is the first message received by every node. NodeID is the identity
// assigned to the node and NodeIDs lists every participant of the cluster.
type Init struct {
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}

// Type implements Payload.
func (Init) Type() string { return TypeInit }

// InitOk acknowledges an Init.
type InitOk struct{}

// Type implements Payload.
func (InitOk) Type() string { return TypeInitOk }

// InitVocabulary is the only Vocabulary accepted before the handshake
// completes.
var InitVocabulary = NewVocabulary(Init{}, InitOk{})
