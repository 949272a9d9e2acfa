package service

import "sync"

// Client は接続中の1クライアントを表します
// UserName・Role・roomの書き換えは、その接続のイベントループからのみ行われます
// （同一接続のメッセージは並行処理されないため、フィールド自体のロックは不要）
type Client struct {
	ID       string
	UserName string
	Role     string

	sender Sender
	room   *Room
}

// Registry は接続中の全クライアントを管理します
// 純粋な台帳であり、ビジネスルールは持ちません
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Add はクライアントを登録します
func (reg *Registry) Add(c *Client) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.clients[c.ID] = c
}

// Remove はクライアントの登録を解除します
func (reg *Registry) Remove(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.clients, id)
}

// Get はクライアントをIDで取得します
func (reg *Registry) Get(id string) (*Client, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	c, ok := reg.clients[id]
	return c, ok
}

// Count は接続中のクライアント数を返します
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.clients)
}
