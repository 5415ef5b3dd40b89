package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// TipID: obrigatório para subscribe/unsubscribe ("*" = todos os tips)
type ClientMsg struct {
	Type  string `json:"type"`
	TipID string `json:"tipId"`
}

// Invalidation avisa o cliente que deve refazer a leitura; não carrega dados
type Invalidation struct {
	Type  string `json:"type"` // sempre "invalidate"
	TipID string `json:"tipId"`
	Kind  string `json:"kind,omitempty"`
}

// AllTips assina todas as mudanças (lista de tips, leaderboard)
const AllTips = "*"
