package topics

const (
	// Tips
	TipChanges = "tip_changes"

	// Redis Pub/Sub consumido pelo ws do tips-service
	TipChangesBroadcast = "tip_changes_broadcast"
)
