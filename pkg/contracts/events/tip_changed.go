package events

// ChangeKind identifica o que mudou; o consumidor só invalida e refaz a leitura
type ChangeKind string

const (
	TipCreated      ChangeKind = "tip_created"
	TipUpdated      ChangeKind = "tip_updated"
	TipSettled      ChangeKind = "tip_settled"
	StakeCreated    ChangeKind = "stake_created"
	StakeDeleted    ChangeKind = "stake_deleted"
	ReactionToggled ChangeKind = "reaction_toggled"
	CommentAdded    ChangeKind = "comment_added"
)

// Evento publicado no tópico "tip_changes"
type TipChanged struct {
	TipID    string     `json:"tip_id"`
	Kind     ChangeKind `json:"kind"`
	Status   string     `json:"status,omitempty"`
	ActorID  string     `json:"actor_id"`
	TsUnixMs int64      `json:"ts_unix_ms"`
}
