package chat

import "github.com/zhouzirui/lingualink/backend/internal/model/chat"

// messageStore keeps messages in append order with an id index. Callers hold
// the conversation lock.
type messageStore struct {
	items []chat.Message
	index map[string]int
}

func newMessageStore() *messageStore {
	return &messageStore{
		items: make([]chat.Message, 0, 16),
		index: make(map[string]int),
	}
}

func (s *messageStore) append(msg chat.Message) {
	s.index[msg.ID] = len(s.items)
	s.items = append(s.items, msg)
}

// settle patches a pending message once. Unknown or already settled ids are ignored.
func (s *messageStore) settle(id, translated string) (chat.Message, bool) {
	pos, ok := s.index[id]
	if !ok {
		return chat.Message{}, false
	}

	msg := &s.items[pos]
	if !msg.IsTranslating {
		return chat.Message{}, false
	}

	msg.TranslatedText = translated
	msg.IsTranslating = false
	return *msg, true
}

func (s *messageStore) get(id string) (chat.Message, bool) {
	pos, ok := s.index[id]
	if !ok {
		return chat.Message{}, false
	}
	return s.items[pos], true
}

func (s *messageStore) len() int {
	return len(s.items)
}

func (s *messageStore) list() []chat.Message {
	copied := make([]chat.Message, len(s.items))
	copy(copied, s.items)
	return copied
}
