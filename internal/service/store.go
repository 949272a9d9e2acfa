package service

import "sync"

// Store はルームIDからルームへのマッピングを管理します
// ロック順序は常に Store → Room の順で取得します
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*Room)}
}

// Create は新しい空のルームを作成します
// 同じIDのルームがすでに存在する場合はErrRoomAlreadyExistsを返します
func (s *Store) Create(id, mode string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.rooms[id]; ok && !existing.isClosed() {
		return nil, ErrRoomAlreadyExists
	}
	r := newRoom(id, mode)
	s.rooms[id] = r
	return r, nil
}

// GetOrCreate は既存のルームを返すか、なければ作成します（セッション型）
// 既存ルームのmodeが一致しない場合はErrRoomAlreadyExistsを返します
// 戻り値のcreatedは新規作成だった場合にtrueになります
func (s *Store) GetOrCreate(id, mode string) (room *Room, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.rooms[id]; ok && !existing.isClosed() {
		if existing.Mode() != mode {
			return nil, false, ErrRoomAlreadyExists
		}
		return existing, false, nil
	}
	r := newRoom(id, mode)
	s.rooms[id] = r
	return r, true, nil
}

// Get はルームを取得します
// 閉じたルーム（空になって削除待ちのもの）は存在しない扱いです
func (s *Store) Get(id string) (*Room, bool) {
	s.mu.RLock()
	r, ok := s.rooms[id]
	s.mu.RUnlock()
	if !ok || r.isClosed() {
		return nil, false
	}
	return r, true
}

// RemoveIfEmpty はメンバーが空の場合に限りルームを削除します
// メンバーが残っている場合は何もしません
func (s *Store) RemoveIfEmpty(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return
	}
	if r.Len() == 0 {
		delete(s.rooms, id)
	}
}

// Count は開いているルームの数を返します
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.rooms {
		if !r.isClosed() {
			n++
		}
	}
	return n
}
